package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Simulator advances a world by one fixed step. The session engine treats it
// as opaque: it never inspects what a step did, only that the state value was
// transformed in place.
type Simulator interface {
	Simulate(state *WorldState, dt float64)
}

// SimulatorFunc adapts a plain function to the Simulator interface.
type SimulatorFunc func(state *WorldState, dt float64)

func (f SimulatorFunc) Simulate(state *WorldState, dt float64) { f(state, dt) }

// Flight tuning. Not a correctness surface; the values only need to feel
// plausible for manual testing.
const (
	rotSpeed    = math.Pi / 2 // rad/s
	cruiseSpeed = 6.0
	boostFactor = 2.5
	brakeFactor = 0.2
	accelBlend  = 2.0 // velocity approach rate, 1/s
	ringRadius  = 3.0
)

// FlightSimulator is the reference simulation: quaternion-steered ships with
// constant forward thrust. In race mode it additionally tracks ring passage.
type FlightSimulator struct{}

func NewFlightSimulator() *FlightSimulator { return &FlightSimulator{} }

func (FlightSimulator) Simulate(state *WorldState, dt float64) {
	for i := range state.Players {
		stepPlayer(&state.Players[i], dt)
	}
	if state.Settings.Mode == "race" {
		advanceRace(state)
	}
}

func stepPlayer(p *Player, dt float64) {
	forward := p.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
	right := p.Rotation.Rotate(mgl64.Vec3{1, 0, 0})

	var pitch, yaw, roll float64
	if p.Controls.LookUp {
		pitch++
	}
	if p.Controls.LookDown {
		pitch--
	}
	if p.Controls.LookLeft {
		yaw++
	}
	if p.Controls.LookRight {
		yaw--
	}
	if p.Controls.RollLeft {
		roll++
	}
	if p.Controls.RollRight {
		roll--
	}

	// Yaw turns about the ship's local up axis; pitch and roll are applied
	// about the world-space right/forward axes derived above, matching the
	// original control feel.
	if yaw != 0 {
		p.Rotation = p.Rotation.Mul(mgl64.QuatRotate(yaw*rotSpeed*dt, mgl64.Vec3{0, 1, 0}))
	}
	if pitch != 0 {
		p.Rotation = mgl64.QuatRotate(pitch*rotSpeed*dt, right).Mul(p.Rotation)
	}
	if roll != 0 {
		p.Rotation = mgl64.QuatRotate(roll*rotSpeed*dt, forward).Mul(p.Rotation)
	}
	p.Rotation = p.Rotation.Normalize()

	target := cruiseSpeed
	if p.Controls.Boost {
		target *= boostFactor
	}
	if p.Controls.Brake {
		target *= brakeFactor
	}
	desired := p.Rotation.Rotate(mgl64.Vec3{0, 0, -1}).Mul(target)
	blend := accelBlend * dt
	if blend > 1 {
		blend = 1
	}
	p.Velocity = p.Velocity.Add(desired.Sub(p.Velocity).Mul(blend))
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
}

// advanceRace bumps NextRing when a player flies through its target ring.
func advanceRace(state *WorldState) {
	rings := make([]*Object, 0, len(state.Objects))
	for i := range state.Objects {
		if state.Objects[i].Kind == KindRing {
			rings = append(rings, &state.Objects[i])
		}
	}
	if len(rings) == 0 {
		return
	}
	for i := range state.Players {
		p := &state.Players[i]
		ring := rings[p.NextRing%len(rings)]
		if p.Position.Sub(ring.Position).Len() < ringRadius {
			p.NextRing++
		}
	}
}
