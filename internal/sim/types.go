package sim

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// ObjectKind discriminates the closed set of world object variants. Wire
// decoding switches exhaustively over this tag; there is no runtime shape
// sniffing.
type ObjectKind string

const (
	KindCube   ObjectKind = "cube"
	KindShip   ObjectKind = "ship"
	KindRing   ObjectKind = "ring"
	KindMarker ObjectKind = "marker"
)

// ParseObjectKind validates a wire-level kind tag against the closed set.
func ParseObjectKind(raw string) (ObjectKind, error) {
	switch ObjectKind(raw) {
	case KindCube, KindShip, KindRing, KindMarker:
		return ObjectKind(raw), nil
	default:
		return "", fmt.Errorf("unknown object kind %q", raw)
	}
}

// Controls is the decoded per-player control state. The wire carries it as a
// name->bool map; the simulation only ever sees this struct.
type Controls struct {
	LookUp    bool
	LookDown  bool
	LookLeft  bool
	LookRight bool
	RollLeft  bool
	RollRight bool
	Boost     bool
	Brake     bool
}

// Control names as they appear in playerInput payloads.
const (
	ControlLookUp    = "look_up"
	ControlLookDown  = "look_down"
	ControlLookLeft  = "look_left"
	ControlLookRight = "look_right"
	ControlRollLeft  = "roll_left"
	ControlRollRight = "roll_right"
	ControlBoost     = "boost"
	ControlBrake     = "brake"
)

// ControlsFromMap decodes a wire control map. Unknown names are ignored so a
// newer client cannot poison the tick loop.
func ControlsFromMap(m map[string]bool) Controls {
	var c Controls
	for name, down := range m {
		if !down {
			continue
		}
		switch name {
		case ControlLookUp:
			c.LookUp = true
		case ControlLookDown:
			c.LookDown = true
		case ControlLookLeft:
			c.LookLeft = true
		case ControlLookRight:
			c.LookRight = true
		case ControlRollLeft:
			c.RollLeft = true
		case ControlRollRight:
			c.RollRight = true
		case ControlBoost:
			c.Boost = true
		case ControlBrake:
			c.Brake = true
		}
	}
	return c
}

// Map renders the control state back into its wire form.
func (c Controls) Map() map[string]bool {
	m := make(map[string]bool, 8)
	if c.LookUp {
		m[ControlLookUp] = true
	}
	if c.LookDown {
		m[ControlLookDown] = true
	}
	if c.LookLeft {
		m[ControlLookLeft] = true
	}
	if c.LookRight {
		m[ControlLookRight] = true
	}
	if c.RollLeft {
		m[ControlRollLeft] = true
	}
	if c.RollRight {
		m[ControlRollRight] = true
	}
	if c.Boost {
		m[ControlBoost] = true
	}
	if c.Brake {
		m[ControlBrake] = true
	}
	return m
}

// Player is a piloted entity. Prev* always hold the pose from the immediately
// preceding snapshot (or the first-seen pose for a fresh player) and exist
// solely as interpolation anchors.
type Player struct {
	Identity     string
	Name         string
	Position     mgl64.Vec3
	Rotation     mgl64.Quat
	PrevPosition mgl64.Vec3
	PrevRotation mgl64.Quat
	Velocity     mgl64.Vec3
	Controls     Controls
	NextRing     int
}

// Object is a non-piloted world entity.
type Object struct {
	ID           int
	Kind         ObjectKind
	Position     mgl64.Vec3
	Rotation     mgl64.Quat
	PrevPosition mgl64.Vec3
	PrevRotation mgl64.Quat
	Scale        mgl64.Vec3
}

// Settings carries the per-room session configuration chosen at start.
type Settings struct {
	Mode string
	Map  string
}

// WorldState is the authoritative aggregate a Simulator transforms. It is a
// plain value: Clone copies the two entity slices and nothing else can alias,
// so serialization never needs cycle detection.
type WorldState struct {
	Players  []Player
	Objects  []Object
	Settings Settings
}

// NewWorldState returns an empty world with sandbox defaults.
func NewWorldState() WorldState {
	return WorldState{Settings: Settings{Mode: "sandbox", Map: "EmptySpace"}}
}

// Clone deep-copies the state.
func (s *WorldState) Clone() WorldState {
	out := *s
	out.Players = slices.Clone(s.Players)
	out.Objects = slices.Clone(s.Objects)
	return out
}

// FindPlayer returns the index of the player with the given identity, or -1.
func (s *WorldState) FindPlayer(identity string) int {
	for i := range s.Players {
		if s.Players[i].Identity == identity {
			return i
		}
	}
	return -1
}

// AddPlayer spawns a player at a staggered position and returns its index.
func AddPlayer(s *WorldState, identity, name string) int {
	idx := len(s.Players)
	pos := mgl64.Vec3{float64(idx) * 6, 0, 0}
	s.Players = append(s.Players, Player{
		Identity:     identity,
		Name:         name,
		Position:     pos,
		Rotation:     mgl64.QuatIdent(),
		PrevPosition: pos,
		PrevRotation: mgl64.QuatIdent(),
	})
	return idx
}

// RemovePlayer drops the player with the given identity, preserving order.
func RemovePlayer(s *WorldState, identity string) bool {
	idx := s.FindPlayer(identity)
	if idx < 0 {
		return false
	}
	s.Players = slices.Delete(s.Players, idx, idx+1)
	return true
}

// SnapshotPrev copies every entity's current pose into its Prev* fields.
// Called before each fixed tick so interpolation has a pre-tick reference.
func SnapshotPrev(s *WorldState) {
	for i := range s.Players {
		p := &s.Players[i]
		p.PrevPosition = p.Position
		p.PrevRotation = p.Rotation
	}
	for i := range s.Objects {
		o := &s.Objects[i]
		o.PrevPosition = o.Position
		o.PrevRotation = o.Rotation
	}
}

// AnchorPrev rewrites newer's Prev* fields to older's current poses, matched
// by stable identity. Entities absent from older anchor to their own pose, so
// a freshly materialized entity renders where it appeared instead of sweeping
// in from the origin.
func AnchorPrev(older, newer *WorldState) {
	for i := range newer.Players {
		p := &newer.Players[i]
		if j := older.FindPlayer(p.Identity); j >= 0 {
			p.PrevPosition = older.Players[j].Position
			p.PrevRotation = older.Players[j].Rotation
		} else {
			p.PrevPosition = p.Position
			p.PrevRotation = p.Rotation
		}
	}
	for i := range newer.Objects {
		o := &newer.Objects[i]
		if j := findObject(older, o.ID); j >= 0 {
			o.PrevPosition = older.Objects[j].Position
			o.PrevRotation = older.Objects[j].Rotation
		} else {
			o.PrevPosition = o.Position
			o.PrevRotation = o.Rotation
		}
	}
}

func findObject(s *WorldState, id int) int {
	for i := range s.Objects {
		if s.Objects[i].ID == id {
			return i
		}
	}
	return -1
}
