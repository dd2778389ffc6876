package sim

// FixedStepLoop drives a Simulator at a constant tick rate from a
// variable-rate frame loop. It owns the accumulator of unconsumed wall-clock
// time; the caller owns the frame cadence. This is the offline/local path —
// a networked session never runs one of these against the same state.
type FixedStepLoop struct {
	sim        Simulator
	state      WorldState
	tickDt     float64
	maxFrameDt float64
	acc        float64
}

// DefaultMaxFrameDt bounds a single frame's contribution to the accumulator
// so a suspended tab or debugger pause cannot trigger a runaway catch-up
// burst.
const DefaultMaxFrameDt = 0.25

// NewFixedStepLoop creates a loop ticking at tickDt seconds per step.
// Non-positive tickDt falls back to a 20 Hz step; the accumulator loop in
// Advance requires a positive tick.
func NewFixedStepLoop(simulator Simulator, state WorldState, tickDt float64) *FixedStepLoop {
	if tickDt <= 0 {
		tickDt = 1.0 / 20
	}
	return &FixedStepLoop{
		sim:        simulator,
		state:      state,
		tickDt:     tickDt,
		maxFrameDt: DefaultMaxFrameDt,
	}
}

// SetMaxFrameDt overrides the frame clamp.
func (l *FixedStepLoop) SetMaxFrameDt(max float64) { l.maxFrameDt = max }

// State exposes the loop-owned world for input injection between frames.
func (l *FixedStepLoop) State() *WorldState { return &l.state }

// Advance consumes one frame's wall-clock delta, firing as many fixed ticks
// as the accumulator covers. Before each tick the current poses are
// snapshotted into the Prev* anchors. The returned alpha is the residual
// fraction of a tick, ready to hand to Blend for the frame's render pose.
func (l *FixedStepLoop) Advance(frameDt float64) float64 {
	if frameDt < 0 {
		frameDt = 0
	}
	if frameDt > l.maxFrameDt {
		frameDt = l.maxFrameDt
	}
	l.acc += frameDt
	for l.acc >= l.tickDt {
		SnapshotPrev(&l.state)
		l.sim.Simulate(&l.state, l.tickDt)
		l.acc -= l.tickDt
	}
	return l.acc / l.tickDt
}

// RenderState advances by frameDt and returns the blended frame pose in one
// call.
func (l *FixedStepLoop) RenderState(frameDt float64) WorldState {
	alpha := l.Advance(frameDt)
	return Blend(&l.state, alpha)
}
