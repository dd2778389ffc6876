package netsync

import "slipstream/internal/sim"

// Snapshot is one broadcast unit of authoritative state. Immutable once
// buffered; interpolation always works on copies.
type Snapshot struct {
	Sequence   uint64
	ServerTime int64 // producer timestamp, unix milliseconds
	State      sim.WorldState
}

// SnapshotBuffer is a bounded, time-ordered history of received snapshots.
// Entries are appended in arrival order, which the sequence guard upstream
// guarantees is also serverTime order; bracket search relies on that.
type SnapshotBuffer struct {
	max   int
	snaps []Snapshot
}

// NewSnapshotBuffer creates a buffer retaining at most max snapshots.
func NewSnapshotBuffer(max int) *SnapshotBuffer {
	if max < 2 {
		max = 2
	}
	return &SnapshotBuffer{max: max, snaps: make([]Snapshot, 0, max)}
}

// Push appends to the tail, evicting the oldest entry if the buffer is full.
// The count bound is independent of time, so memory stays bounded under any
// sustained tick rate.
func (b *SnapshotBuffer) Push(s Snapshot) {
	if len(b.snaps) >= b.max {
		b.snaps = b.snaps[1:]
	}
	b.snaps = append(b.snaps, s)
}

// PruneBefore discards snapshots with ServerTime strictly below cutoff.
func (b *SnapshotBuffer) PruneBefore(cutoff float64) {
	i := 0
	for i < len(b.snaps) && float64(b.snaps[i].ServerTime) < cutoff {
		i++
	}
	if i > 0 {
		b.snaps = b.snaps[i:]
	}
}

// Len returns the number of buffered snapshots.
func (b *SnapshotBuffer) Len() int { return len(b.snaps) }

// Newest returns the most recent snapshot, or nil when empty.
func (b *SnapshotBuffer) Newest() *Snapshot {
	if len(b.snaps) == 0 {
		return nil
	}
	return &b.snaps[len(b.snaps)-1]
}

// Bracket finds the adjacent pair surrounding renderTime. A renderTime before
// all entries yields the two oldest; past all entries, the two newest — edge
// clamping is the caller's extrapolation policy, not an error. With fewer
// than two entries it returns what exists (possibly both nil); it never
// panics on an empty buffer.
func (b *SnapshotBuffer) Bracket(renderTime float64) (older, newer *Snapshot) {
	switch len(b.snaps) {
	case 0:
		return nil, nil
	case 1:
		return &b.snaps[0], nil
	}
	idx := len(b.snaps) - 2
	for i := 0; i < len(b.snaps)-1; i++ {
		if float64(b.snaps[i].ServerTime) <= renderTime && renderTime <= float64(b.snaps[i+1].ServerTime) {
			idx = i
			break
		}
	}
	if renderTime < float64(b.snaps[0].ServerTime) {
		idx = 0
	}
	return &b.snaps[idx], &b.snaps[idx+1]
}

// Reset drops all buffered snapshots.
func (b *SnapshotBuffer) Reset() { b.snaps = b.snaps[:0] }
