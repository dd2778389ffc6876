package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slipstream/internal/net/ws"
	"slipstream/internal/netsync"
	"slipstream/internal/room"
	"slipstream/internal/sim"
)

func startServer(t *testing.T) string {
	t.Helper()
	mgr := room.NewManager(room.Config{TickRate: 100}, nil, nil)
	t.Cleanup(mgr.Shutdown)
	srv := httptest.NewServer(ws.NewMux(mgr, nil, ws.Config{TickRate: 100}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialClient(t *testing.T, wsURL string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), wsURL, netsync.Config{RenderDelay: 30 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientSessionEndToEnd(t *testing.T) {
	wsURL := startServer(t)
	host := dialClient(t, wsURL)

	ack, err := host.CreateRoom("Arena", "", "alice")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if !ack.Success || ack.RoomID == "" || host.MemberIndex() != 0 {
		t.Fatalf("unexpected create ack: %+v", ack)
	}

	guest := dialClient(t, wsURL)
	rooms, err := guest.Rooms()
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != ack.RoomID {
		t.Fatalf("unexpected lobby listing: %+v", rooms)
	}
	gack, err := guest.JoinRoom(ack.RoomID, "bob", "")
	if err != nil || !gack.Success {
		t.Fatalf("guest join: %v, %+v", err, gack)
	}

	if err := guest.StartSimulation("sandbox", "EmptySpace"); err == nil {
		t.Fatal("non-owner start should be rejected")
	}
	if err := host.StartSimulation("sandbox", "EmptySpace"); err != nil {
		t.Fatalf("owner start: %v", err)
	}
	// A repeated start is acknowledged again rather than left to time out.
	if err := host.StartSimulation("sandbox", "EmptySpace"); err != nil {
		t.Fatalf("repeated start: %v", err)
	}

	// The pipeline needs a bracketing pair behind the render delay before it
	// can produce a state.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := guest.RenderState(time.Now()); ok {
			if len(state.Players) != 2 {
				t.Fatalf("expected 2 players in render state, got %d", len(state.Players))
			}
			_, _, buffered, _ := guest.SyncDiagnostics()
			if buffered == 0 {
				t.Fatal("diagnostics should report buffered snapshots")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("render state never became available")
}

func TestClientInputMovesShip(t *testing.T) {
	wsURL := startServer(t)
	host := dialClient(t, wsURL)

	if _, err := host.CreateRoom("Solo", "", "alice"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := host.StartSimulation("sandbox", "EmptySpace"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := host.SendInput(sim.Controls{Boost: true}); err != nil {
		t.Fatalf("send input: %v", err)
	}

	// Constant thrust carries the ship down -Z; boost just gets there faster.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := host.RenderState(time.Now()); ok && len(state.Players) == 1 {
			if state.Players[0].Position[2] < -0.5 {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("ship never moved")
}

func TestOfflineSessionMirrorsNetworkedPlay(t *testing.T) {
	o := NewOffline(sim.NewFlightSimulator(), 20, "alice")
	o.LoadMap("Asteroids")
	o.SetControls(sim.Controls{Boost: true})

	var state sim.WorldState
	for i := 0; i < 40; i++ {
		state = o.RenderState(0.05)
	}

	if len(state.Players) != 1 || len(state.Objects) != 12 {
		t.Fatalf("unexpected world: %d players, %d objects", len(state.Players), len(state.Objects))
	}
	if state.Players[0].Position[2] >= 0 {
		t.Fatalf("local ship should have advanced along -Z, got %v", state.Players[0].Position[2])
	}
}
