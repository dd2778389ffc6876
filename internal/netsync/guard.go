package netsync

// SequenceGuard rejects stale or duplicate snapshots by sequence number.
// Sequences within a room only ever increase, so anything at or below the
// last accepted value is a reorder or a replay and is silently dropped.
type SequenceGuard struct {
	last    uint64
	dropped uint64
}

// Accept reports whether seq advances past the last accepted sequence and
// records it if so.
func (g *SequenceGuard) Accept(seq uint64) bool {
	if seq <= g.last {
		g.dropped++
		return false
	}
	g.last = seq
	return true
}

// Last returns the most recently accepted sequence (0 before any).
func (g *SequenceGuard) Last() uint64 { return g.last }

// Dropped returns how many snapshots were rejected. Diagnostics only.
func (g *SequenceGuard) Dropped() uint64 { return g.dropped }

// Reset clears the guard for a reconnect, where the server restarts its
// sequence counter.
func (g *SequenceGuard) Reset() { g.last, g.dropped = 0, 0 }
