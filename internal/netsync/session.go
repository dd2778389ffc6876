package netsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"slipstream/internal/sim"
)

// Config tunes a receive session. Zero values fall back to defaults matched
// to a 20 Hz server.
type Config struct {
	// RenderDelay is how far behind the offset-corrected server timeline the
	// client renders. One to two server tick periods keeps a bracketing pair
	// buffered under normal jitter.
	RenderDelay time.Duration
	// Horizon bounds how far behind renderTime snapshots are retained.
	Horizon time.Duration
	// MaxSnapshots caps the buffer length.
	MaxSnapshots int
}

const (
	defaultRenderDelay  = 100 * time.Millisecond
	defaultHorizon      = 5 * time.Second
	defaultMaxSnapshots = 10
)

// Session is the client-side receive pipeline: sequence guarding, clock
// synchronization, snapshot buffering, and render-state sampling. The network
// callback and the frame loop may run on different goroutines; the mutex
// guarantees a snapshot arriving mid-frame is fully applied before the next
// frame samples renderTime.
type Session struct {
	mu     sync.Mutex
	guard  SequenceGuard
	clock  Clock
	buffer *SnapshotBuffer

	renderDelayMs float64
	horizonMs     float64
	log           *zap.SugaredLogger
}

// NewSession constructs a pipeline with the given tuning.
func NewSession(cfg Config, log *zap.SugaredLogger) *Session {
	if cfg.RenderDelay <= 0 {
		cfg.RenderDelay = defaultRenderDelay
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = defaultHorizon
	}
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = defaultMaxSnapshots
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		buffer:        NewSnapshotBuffer(cfg.MaxSnapshots),
		renderDelayMs: float64(cfg.RenderDelay.Milliseconds()),
		horizonMs:     float64(cfg.Horizon.Milliseconds()),
		log:           log,
	}
}

// HandleSnapshot applies one received snapshot: stale sequences are dropped
// silently, accepted ones update the clock, anchor their Prev* poses against
// the previous newest snapshot, and enter the buffer. Returns whether the
// snapshot was accepted.
func (s *Session) HandleSnapshot(snap Snapshot, receivedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guard.Accept(snap.Sequence) {
		s.log.Debugw("dropping stale snapshot", "seq", snap.Sequence, "last", s.guard.Last())
		return false
	}
	s.clock.Observe(snap.ServerTime, receivedAt)

	if prev := s.buffer.Newest(); prev != nil {
		sim.AnchorPrev(&prev.State, &snap.State)
	} else {
		sim.SnapshotPrev(&snap.State)
	}
	s.buffer.Push(snap)
	return true
}

// RenderState samples the interpolated world for a frame at the given local
// instant. ok is false while no snapshot has arrived yet; with a single
// buffered snapshot the state is returned verbatim.
func (s *Session) RenderState(now time.Time) (state sim.WorldState, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	renderTime := s.clock.RenderTime(now, s.renderDelayMs)
	s.buffer.PruneBefore(renderTime - s.horizonMs)

	older, newer := s.buffer.Bracket(renderTime)
	switch {
	case older == nil:
		return sim.WorldState{}, false
	case newer == nil:
		return older.State.Clone(), true
	default:
		alpha := sim.Alpha(float64(older.ServerTime), float64(newer.ServerTime), renderTime)
		return sim.Interpolate(&older.State, &newer.State, alpha), true
	}
}

// Reset clears all sync state for a reconnect.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard.Reset()
	s.clock.Reset()
	s.buffer.Reset()
}

// Diagnostics reports the live sync estimates.
func (s *Session) Diagnostics() (offsetMs float64, intervalSec float64, buffered int, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Offset(), s.clock.Interval(), s.buffer.Len(), s.guard.Dropped()
}
