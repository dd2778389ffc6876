package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecClose(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

// Quaternions double-cover rotations, so q and -q are the same orientation.
func quatClose(a, b mgl64.Quat) bool {
	return math.Abs(a.Dot(b)) > 1-1e-9
}

func twoPoseWorlds() (older, newer WorldState) {
	older = NewWorldState()
	AddPlayer(&older, "p1", "pilot")
	older.Players[0].Position = mgl64.Vec3{0, 0, 0}
	older.Players[0].Rotation = mgl64.QuatIdent()

	newer = older.Clone()
	newer.Players[0].Position = mgl64.Vec3{10, 20, 30}
	newer.Players[0].Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	return older, newer
}

func TestAlphaClamping(t *testing.T) {
	cases := []struct {
		older, newer, render float64
		want                 float64
	}{
		{100, 200, 150, 0.5},
		{100, 200, 100, 0},
		{100, 200, 200, 1},
		{100, 200, 50, 0},
		{100, 200, 500, 1},
		// Degenerate span collapses to the older endpoint.
		{100, 100, 100, 0},
	}
	for _, tc := range cases {
		if got := Alpha(tc.older, tc.newer, tc.render); got != tc.want {
			t.Fatalf("Alpha(%v,%v,%v) = %v, want %v", tc.older, tc.newer, tc.render, got, tc.want)
		}
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	older, newer := twoPoseWorlds()

	at0 := Interpolate(&older, &newer, 0)
	if !vecClose(at0.Players[0].Position, older.Players[0].Position) {
		t.Fatalf("alpha 0 should yield the older position, got %v", at0.Players[0].Position)
	}
	if !quatClose(at0.Players[0].Rotation, older.Players[0].Rotation) {
		t.Fatal("alpha 0 should yield the older rotation")
	}

	at1 := Interpolate(&older, &newer, 1)
	if !vecClose(at1.Players[0].Position, newer.Players[0].Position) {
		t.Fatalf("alpha 1 should yield the newer position, got %v", at1.Players[0].Position)
	}
	if !quatClose(at1.Players[0].Rotation, newer.Players[0].Rotation) {
		t.Fatal("alpha 1 should yield the newer rotation")
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	older, newer := twoPoseWorlds()

	mid := Interpolate(&older, &newer, 0.5)

	if !vecClose(mid.Players[0].Position, mgl64.Vec3{5, 10, 15}) {
		t.Fatalf("expected position midpoint, got %v", mid.Players[0].Position)
	}
	wantRot := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	if !quatClose(mid.Players[0].Rotation, wantRot) {
		t.Fatalf("expected 45 degrees about Y, got %v", mid.Players[0].Rotation)
	}
	if norm := mid.Players[0].Rotation.Len(); math.Abs(norm-1) > 1e-9 {
		t.Fatalf("interpolated rotation should be unit length, got %v", norm)
	}
}

func TestSlerpTakesShortestArc(t *testing.T) {
	a := mgl64.QuatIdent()
	// The sign-flipped target encodes the same 90-degree orientation; the
	// midpoint must still be 45 degrees, not a trip the long way around.
	b := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}).Scale(-1)

	mid := slerp(a, b, 0.5)

	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	if !quatClose(mid, want) {
		t.Fatalf("expected shortest-arc midpoint, got %v", mid)
	}
}

func TestInterpolateNewEntityKeepsOwnPose(t *testing.T) {
	older, newer := twoPoseWorlds()
	AddPlayer(&newer, "p2", "late")
	newer.Players[1].Position = mgl64.Vec3{100, 0, 0}

	out := Interpolate(&older, &newer, 0.25)

	if !vecClose(out.Players[1].Position, mgl64.Vec3{100, 0, 0}) {
		t.Fatalf("entity absent from older should render at its own pose, got %v", out.Players[1].Position)
	}
}

func TestInterpolateDoesNotMutateInputs(t *testing.T) {
	older, newer := twoPoseWorlds()
	olderBefore := older.Players[0]
	newerBefore := newer.Players[0]

	Interpolate(&older, &newer, 0.5)

	if older.Players[0] != olderBefore || newer.Players[0] != newerBefore {
		t.Fatal("interpolation must not mutate its inputs")
	}
}

func TestAnchorPrevMatchesByIdentity(t *testing.T) {
	older, newer := twoPoseWorlds()
	AddPlayer(&newer, "p2", "late")
	newer.Players[1].Position = mgl64.Vec3{100, 0, 0}

	AnchorPrev(&older, &newer)

	if !vecClose(newer.Players[0].PrevPosition, older.Players[0].Position) {
		t.Fatalf("known entity should anchor to the older pose, got %v", newer.Players[0].PrevPosition)
	}
	if !vecClose(newer.Players[1].PrevPosition, newer.Players[1].Position) {
		t.Fatalf("fresh entity should anchor to its own pose, got %v", newer.Players[1].PrevPosition)
	}
}
