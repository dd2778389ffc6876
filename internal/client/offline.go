package client

import (
	"slipstream/internal/sim"
)

// Offline is the local-play counterpart of Client: the same Simulate
// collaborator driven by a fixed-step loop instead of the network. A session
// is either offline or networked, never both against one world.
type Offline struct {
	loop *sim.FixedStepLoop
}

// NewOffline builds a local session at the given tick rate with a single
// player.
func NewOffline(simulator sim.Simulator, tickRate int, username string) *Offline {
	if tickRate <= 0 {
		tickRate = 20
	}
	state := sim.NewWorldState()
	sim.AddPlayer(&state, "local", username)
	return &Offline{loop: sim.NewFixedStepLoop(simulator, state, 1.0/float64(tickRate))}
}

// SetControls stores the local player's control state for upcoming ticks.
func (o *Offline) SetControls(controls sim.Controls) {
	state := o.loop.State()
	if idx := state.FindPlayer("local"); idx >= 0 {
		state.Players[idx].Controls = controls
	}
}

// LoadMap loads a map into the local world.
func (o *Offline) LoadMap(name string) {
	sim.LoadMap(o.loop.State(), name)
}

// RenderState consumes one frame's delta and returns the blended pose.
func (o *Offline) RenderState(frameDt float64) sim.WorldState {
	return o.loop.RenderState(frameDt)
}
