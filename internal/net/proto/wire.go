package proto

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"slipstream/internal/sim"
)

// Wire state is produced by a schema per entity kind: only known data fields
// are walked, so the encoded value is acyclic by construction and needs no
// seen-set. Vectors flatten to [x,y,z], quaternions to [x,y,z,w].

// WirePlayer is the transmit form of sim.Player.
type WirePlayer struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Velocity [3]float64 `json:"velocity"`
	NextRing int        `json:"nextRing,omitempty"`
}

// WireObject is the transmit form of sim.Object, discriminated by Kind.
type WireObject struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Scale    [3]float64 `json:"scale"`
}

// WireSettings mirrors sim.Settings.
type WireSettings struct {
	Mode string `json:"mode"`
	Map  string `json:"map"`
}

// WireState is the transmit form of sim.WorldState.
type WireState struct {
	Players  []WirePlayer `json:"players"`
	Objects  []WireObject `json:"objects"`
	Settings WireSettings `json:"settings"`
}

func packVec(v mgl64.Vec3) [3]float64 { return [3]float64{v.X(), v.Y(), v.Z()} }

func packQuat(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W}
}

func unpackVec(a [3]float64) mgl64.Vec3 { return mgl64.Vec3{a[0], a[1], a[2]} }

func unpackQuat(a [4]float64) mgl64.Quat {
	return mgl64.Quat{W: a[3], V: mgl64.Vec3{a[0], a[1], a[2]}}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// EncodeState deep-copies the world into its transmit form. Prev* anchors are
// deliberately not part of the schema: they are client-side derived values,
// and omitting them keeps cached or transient fields off the wire.
func EncodeState(s *sim.WorldState) WireState {
	out := WireState{
		Players:  make([]WirePlayer, 0, len(s.Players)),
		Objects:  make([]WireObject, 0, len(s.Objects)),
		Settings: WireSettings{Mode: s.Settings.Mode, Map: s.Settings.Map},
	}
	for i := range s.Players {
		p := &s.Players[i]
		out.Players = append(out.Players, WirePlayer{
			ID:       p.Identity,
			Name:     p.Name,
			Position: packVec(p.Position),
			Rotation: packQuat(p.Rotation),
			Velocity: packVec(p.Velocity),
			NextRing: p.NextRing,
		})
	}
	for i := range s.Objects {
		o := &s.Objects[i]
		out.Objects = append(out.Objects, WireObject{
			ID:       o.ID,
			Kind:     string(o.Kind),
			Position: packVec(o.Position),
			Rotation: packQuat(o.Rotation),
			Scale:    packVec(o.Scale),
		})
	}
	return out
}

// DecodeState rebuilds a world from its transmit form. A malformed entity
// descriptor is skipped and logged; it never aborts the rest of the snapshot.
func DecodeState(w WireState, log *zap.SugaredLogger) sim.WorldState {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	out := sim.WorldState{
		Players:  make([]sim.Player, 0, len(w.Players)),
		Objects:  make([]sim.Object, 0, len(w.Objects)),
		Settings: sim.Settings{Mode: w.Settings.Mode, Map: w.Settings.Map},
	}
	for _, p := range w.Players {
		if p.ID == "" {
			log.Warnw("skipping player descriptor without id")
			continue
		}
		if !finite(p.Position[0], p.Position[1], p.Position[2],
			p.Rotation[0], p.Rotation[1], p.Rotation[2], p.Rotation[3]) {
			log.Warnw("skipping player descriptor with non-finite pose", "id", p.ID)
			continue
		}
		out.Players = append(out.Players, sim.Player{
			Identity: p.ID,
			Name:     p.Name,
			Position: unpackVec(p.Position),
			Rotation: unpackQuat(p.Rotation),
			Velocity: unpackVec(p.Velocity),
			NextRing: p.NextRing,
		})
	}
	for _, o := range w.Objects {
		kind, err := sim.ParseObjectKind(o.Kind)
		if err != nil {
			log.Warnw("skipping object descriptor", "id", o.ID, "err", err)
			continue
		}
		if !finite(o.Position[0], o.Position[1], o.Position[2],
			o.Rotation[0], o.Rotation[1], o.Rotation[2], o.Rotation[3]) {
			log.Warnw("skipping object descriptor with non-finite pose", "id", o.ID)
			continue
		}
		out.Objects = append(out.Objects, sim.Object{
			ID:       o.ID,
			Kind:     kind,
			Position: unpackVec(o.Position),
			Rotation: unpackQuat(o.Rotation),
			Scale:    unpackVec(o.Scale),
		})
	}
	return out
}
