package room

import "sync/atomic"

// Metrics records a room's runtime counters for the diagnostics endpoint.
// All fields are touched from the room goroutine but read concurrently by
// HTTP handlers, hence the atomics.
type Metrics struct {
	tickCount      atomic.Int64
	totalTickNs    atomic.Int64
	inputsApplied  atomic.Int64
	snapshotsSent  atomic.Int64
	snapshotBytes  atomic.Int64
	simFaults      atomic.Int64
	chatSuppressed atomic.Int64
}

func (m *Metrics) addTick(ns int64) {
	m.tickCount.Add(1)
	m.totalTickNs.Add(ns)
}

func (m *Metrics) addBroadcast(members int, bytes int) {
	m.snapshotsSent.Add(int64(members))
	m.snapshotBytes.Add(int64(bytes * members))
}

func (m *Metrics) incInputs()         { m.inputsApplied.Add(1) }
func (m *Metrics) incSimFaults()      { m.simFaults.Add(1) }
func (m *Metrics) incChatSuppressed() { m.chatSuppressed.Add(1) }

// Snapshot returns a read-only copy for JSON output.
func (m *Metrics) Snapshot() map[string]any {
	ticks := m.tickCount.Load()
	total := m.totalTickNs.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":      ticks,
		"avg_tick_ms":     avgMs,
		"inputs_applied":  m.inputsApplied.Load(),
		"snapshots_sent":  m.snapshotsSent.Load(),
		"snapshot_bytes":  m.snapshotBytes.Load(),
		"sim_faults":      m.simFaults.Load(),
		"chat_suppressed": m.chatSuppressed.Load(),
	}
}
