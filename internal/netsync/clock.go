package netsync

import "time"

// Smoothing weight for both the offset and the interval estimate. 0.1 resists
// single-sample jitter while still tracking slow drift within a few seconds.
const smoothing = 0.1

// Clock estimates the server/client clock offset and the server's effective
// tick period from snapshot arrival times. The offset feeds render-time
// calculation; the interval estimate is diagnostics only.
type Clock struct {
	offset      float64 // serverTime - receiveTime, milliseconds
	interval    float64 // seconds between arrivals
	lastArrival time.Time
}

// Observe folds one accepted snapshot's producer timestamp and local arrival
// time into the estimates.
func (c *Clock) Observe(serverTimeMs int64, receivedAt time.Time) {
	sample := float64(serverTimeMs) - float64(receivedAt.UnixMilli())
	c.offset = c.offset*(1-smoothing) + sample*smoothing

	if !c.lastArrival.IsZero() {
		gap := receivedAt.Sub(c.lastArrival).Seconds()
		if c.interval == 0 {
			c.interval = gap
		} else {
			c.interval = c.interval*(1-smoothing) + gap*smoothing
		}
	}
	c.lastArrival = receivedAt
}

// Offset returns the smoothed offset in milliseconds.
func (c *Clock) Offset() float64 { return c.offset }

// Interval returns the smoothed inter-arrival gap in seconds. Zero until two
// snapshots have arrived.
func (c *Clock) Interval() float64 { return c.interval }

// RenderTime converts a local wall-clock instant into the server-timeline
// timestamp the frame should target, held back by renderDelayMs so the
// snapshot buffer stays populated with a bracketing pair under normal jitter.
func (c *Clock) RenderTime(now time.Time, renderDelayMs float64) float64 {
	return float64(now.UnixMilli()) + c.offset - renderDelayMs
}

// Reset clears the estimates. Only called on reconnect.
func (c *Clock) Reset() {
	c.offset = 0
	c.interval = 0
	c.lastArrival = time.Time{}
}
