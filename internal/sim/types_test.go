package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestParseObjectKind(t *testing.T) {
	for _, raw := range []string{"cube", "ship", "ring", "marker"} {
		kind, err := ParseObjectKind(raw)
		if err != nil {
			t.Fatalf("%q should parse: %v", raw, err)
		}
		if string(kind) != raw {
			t.Fatalf("expected kind %q, got %q", raw, kind)
		}
	}

	if _, err := ParseObjectKind("banana"); err == nil {
		t.Fatal("unknown kind should be rejected")
	}
	if _, err := ParseObjectKind(""); err == nil {
		t.Fatal("empty kind should be rejected")
	}
}

func TestControlsFromMapIgnoresUnknownNames(t *testing.T) {
	c := ControlsFromMap(map[string]bool{
		"boost":         true,
		"look_left":     true,
		"self_destruct": true,
		"brake":         false,
	})

	if !c.Boost || !c.LookLeft {
		t.Fatalf("expected boost and look_left set, got %+v", c)
	}
	if c.Brake {
		t.Fatal("a false entry must not set its control")
	}

	round := ControlsFromMap(c.Map())
	if round != c {
		t.Fatalf("map round trip changed controls: %+v vs %+v", round, c)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	state := NewWorldState()
	AddPlayer(&state, "p1", "pilot")
	LoadMap(&state, "Asteroids")

	clone := state.Clone()
	clone.Players[0].Position = mgl64.Vec3{99, 0, 0}
	clone.Objects[0].Position = mgl64.Vec3{99, 0, 0}

	if state.Players[0].Position[0] == 99 || state.Objects[0].Position[0] == 99 {
		t.Fatal("mutating a clone must not touch the original")
	}
}

func TestAddRemovePlayer(t *testing.T) {
	state := NewWorldState()
	if idx := AddPlayer(&state, "p1", "a"); idx != 0 {
		t.Fatalf("first player should get index 0, got %d", idx)
	}
	if idx := AddPlayer(&state, "p2", "b"); idx != 1 {
		t.Fatalf("second player should get index 1, got %d", idx)
	}
	if state.Players[0].Position == state.Players[1].Position {
		t.Fatal("spawns should be staggered")
	}

	if !RemovePlayer(&state, "p1") {
		t.Fatal("removing a present player should succeed")
	}
	if RemovePlayer(&state, "p1") {
		t.Fatal("removing an absent player should fail")
	}
	if state.FindPlayer("p2") != 0 {
		t.Fatal("remaining players should shift down in order")
	}
}

func TestLoadMapFallsBackToEmptySpace(t *testing.T) {
	state := NewWorldState()
	LoadMap(&state, "NotARealMap")

	if state.Settings.Map != "EmptySpace" {
		t.Fatalf("expected EmptySpace fallback, got %q", state.Settings.Map)
	}
	if len(state.Objects) != 0 {
		t.Fatalf("EmptySpace should have no objects, got %d", len(state.Objects))
	}

	LoadMap(&state, "RingCircuit")
	if len(state.Objects) != 8 {
		t.Fatalf("RingCircuit should place 8 rings, got %d", len(state.Objects))
	}
	for _, o := range state.Objects {
		if o.Kind != KindRing {
			t.Fatalf("RingCircuit objects should all be rings, got %q", o.Kind)
		}
	}
}
