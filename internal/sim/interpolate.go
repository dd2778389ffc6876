package sim

import "github.com/go-gl/mathgl/mgl64"

// lerp3 interpolates per axis.
func lerp3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// slerp spherically interpolates along the shortest arc. Inputs are taken as
// they are; only the result is normalized, guarding against accumulated
// drift without masking bad producers.
func slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// Alpha computes the interpolation fraction of renderTime between two
// timestamps, clamped to [0,1]. A non-positive span yields 0.
func Alpha(olderTime, newerTime, renderTime float64) float64 {
	span := newerTime - olderTime
	if span <= 0 {
		return 0
	}
	alpha := (renderTime - olderTime) / span
	if alpha < 0 {
		return 0
	}
	if alpha > 1 {
		return 1
	}
	return alpha
}

// Interpolate blends two bracketing snapshots into a render-ready state.
// Entities are matched by stable identity; an entity present only in newer is
// rendered at its own pose. Neither input is mutated.
func Interpolate(older, newer *WorldState, alpha float64) WorldState {
	out := newer.Clone()
	for i := range out.Players {
		p := &out.Players[i]
		j := older.FindPlayer(p.Identity)
		if j < 0 {
			continue
		}
		from := &older.Players[j]
		p.Position = lerp3(from.Position, p.Position, alpha)
		p.Rotation = slerp(from.Rotation, p.Rotation, alpha)
	}
	for i := range out.Objects {
		o := &out.Objects[i]
		j := findObject(older, o.ID)
		if j < 0 {
			continue
		}
		from := &older.Objects[j]
		o.Position = lerp3(from.Position, o.Position, alpha)
		o.Rotation = slerp(from.Rotation, o.Rotation, alpha)
	}
	return out
}

// Blend produces the frame pose for locally simulated play: each entity is
// interpolated between its own Prev* anchors and its current pose. Used with
// the residual alpha from FixedStepLoop.Advance.
func Blend(state *WorldState, alpha float64) WorldState {
	out := state.Clone()
	for i := range out.Players {
		p := &out.Players[i]
		p.Position = lerp3(p.PrevPosition, p.Position, alpha)
		p.Rotation = slerp(p.PrevRotation, p.Rotation, alpha)
	}
	for i := range out.Objects {
		o := &out.Objects[i]
		o.Position = lerp3(o.PrevPosition, o.Position, alpha)
		o.Rotation = slerp(o.PrevRotation, o.Rotation, alpha)
	}
	return out
}
