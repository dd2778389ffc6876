package sim

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Modes lists the session modes a startSimulation request may name.
func Modes() []string { return []string{"sandbox", "race"} }

// Maps lists the loadable map names.
func Maps() []string { return []string{"EmptySpace", "RingCircuit", "Asteroids"} }

// ValidMode reports whether mode is in the known set.
func ValidMode(mode string) bool { return slices.Contains(Modes(), mode) }

// ValidMap reports whether name is in the known set.
func ValidMap(name string) bool { return slices.Contains(Maps(), name) }

// LoadMap replaces the world's objects with the named map's content. Unknown
// names fall back to EmptySpace, mirroring how start requests are validated
// before this is reached.
func LoadMap(s *WorldState, name string) {
	if !ValidMap(name) {
		name = "EmptySpace"
	}
	s.Settings.Map = name
	s.Objects = s.Objects[:0]

	switch name {
	case "RingCircuit":
		const count = 8
		const radius = 40.0
		for i := 0; i < count; i++ {
			angle := 2 * math.Pi * float64(i) / count
			pos := mgl64.Vec3{math.Cos(angle) * radius, 0, math.Sin(angle) * radius}
			s.Objects = append(s.Objects, Object{
				ID:           i + 1,
				Kind:         KindRing,
				Position:     pos,
				Rotation:     mgl64.QuatRotate(-angle+math.Pi/2, mgl64.Vec3{0, 1, 0}),
				PrevPosition: pos,
				PrevRotation: mgl64.QuatRotate(-angle+math.Pi/2, mgl64.Vec3{0, 1, 0}),
				Scale:        mgl64.Vec3{1, 1, 1},
			})
		}
	case "Asteroids":
		// Deterministic scatter; positions only matter visually.
		for i := 0; i < 12; i++ {
			f := float64(i)
			pos := mgl64.Vec3{
				math.Sin(f*2.4) * 30,
				math.Sin(f*1.7) * 8,
				math.Cos(f*2.4) * 30,
			}
			s.Objects = append(s.Objects, Object{
				ID:           i + 1,
				Kind:         KindCube,
				Position:     pos,
				Rotation:     mgl64.QuatIdent(),
				PrevPosition: pos,
				PrevRotation: mgl64.QuatIdent(),
				Scale:        mgl64.Vec3{2, 2, 2},
			})
		}
	}
}
