package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"slipstream/internal/net/proto"
	"slipstream/internal/room"
)

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	mgr := room.NewManager(room.Config{TickRate: 100}, nil, nil)
	t.Cleanup(mgr.Shutdown)
	srv := httptest.NewServer(NewMux(mgr, nil, Config{TickRate: 100}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", msgType, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitType reads frames until one with the wanted type arrives.
func awaitType(t *testing.T, conn *websocket.Conn, msgType string) proto.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if env.T == msgType {
			return env
		}
	}
}

func createRoom(t *testing.T, conn *websocket.Conn, name, password, username string) string {
	t.Helper()
	sendMsg(t, conn, proto.TypeCreateRoom, proto.CreateRoom{Name: name, Password: password, Username: username})
	ack, err := proto.DecodePayload[proto.JoinedRoom](awaitType(t, conn, proto.TypeJoinedRoom))
	if err != nil {
		t.Fatalf("decode joinedRoom: %v", err)
	}
	if !ack.Success || ack.RoomID == "" {
		t.Fatalf("create failed: %+v", ack)
	}
	return ack.RoomID
}

func TestLobbyFlowOverWebsocket(t *testing.T) {
	_, wsURL := startServer(t)
	host := dial(t, wsURL)
	guest := dial(t, wsURL)

	roomID := createRoom(t, host, "Arena", "", "alice")

	sendMsg(t, guest, proto.TypeGetRooms, nil)
	list, err := proto.DecodePayload[proto.RoomList](awaitType(t, guest, proto.TypeRoomList))
	if err != nil {
		t.Fatalf("decode roomList: %v", err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].ID != roomID || list.Rooms[0].RequiresPassword {
		t.Fatalf("unexpected lobby listing: %+v", list.Rooms)
	}

	sendMsg(t, guest, proto.TypeJoinRoom, proto.JoinRoom{RoomID: roomID, Username: "bob"})
	ack, err := proto.DecodePayload[proto.JoinedRoom](awaitType(t, guest, proto.TypeJoinedRoom))
	if err != nil {
		t.Fatalf("decode joinedRoom: %v", err)
	}
	if !ack.Success || ack.MemberIndex != 1 {
		t.Fatalf("guest join failed: %+v", ack)
	}

	// Only the creator may start.
	sendMsg(t, guest, proto.TypeStartSimulation, proto.StartSimulation{})
	fail, err := proto.DecodePayload[proto.StartFailure](awaitType(t, guest, proto.TypeStartFailure))
	if err != nil {
		t.Fatalf("decode startFailure: %v", err)
	}
	if !strings.Contains(fail.Message, "room creator") {
		t.Fatalf("unexpected failure message: %q", fail.Message)
	}

	sendMsg(t, host, proto.TypeStartSimulation, proto.StartSimulation{Mode: "sandbox", Map: "EmptySpace"})
	awaitType(t, host, proto.TypeSimulationStarted)

	snapEnv := awaitType(t, guest, proto.TypeWorldSnapshot)
	snap, err := proto.DecodePayload[proto.WorldSnapshot](snapEnv)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Seq == 0 || len(snap.State.Players) != 2 {
		t.Fatalf("unexpected first snapshot: seq %d, %d players", snap.Seq, len(snap.State.Players))
	}
}

func TestJoinFailureMessages(t *testing.T) {
	_, wsURL := startServer(t)
	host := dial(t, wsURL)
	guest := dial(t, wsURL)

	roomID := createRoom(t, host, "Private", "hunter2", "alice")

	sendMsg(t, guest, proto.TypeJoinRoom, proto.JoinRoom{RoomID: "NOSUCH", Username: "bob"})
	ack, _ := proto.DecodePayload[proto.JoinedRoom](awaitType(t, guest, proto.TypeJoinedRoom))
	if ack.Success || ack.Message != "Room not found" {
		t.Fatalf("expected room-not-found failure, got %+v", ack)
	}

	sendMsg(t, guest, proto.TypeJoinRoom, proto.JoinRoom{RoomID: roomID, Username: "bob", Password: "wrong"})
	ack, _ = proto.DecodePayload[proto.JoinedRoom](awaitType(t, guest, proto.TypeJoinedRoom))
	if ack.Success || ack.Message != "Invalid password" {
		t.Fatalf("expected invalid-password failure, got %+v", ack)
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	mgr := room.NewManager(room.Config{TickRate: 100}, nil, nil)
	defer mgr.Shutdown()
	srv := httptest.NewServer(NewMux(mgr, nil, Config{}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn := dial(t, wsURL)
	roomID := createRoom(t, conn, "Ghost", "", "alice")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := mgr.Get(roomID); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("room should be released after its only member disconnects")
}

func TestIdleMemberSurvivesReadDeadline(t *testing.T) {
	oldPong, oldPing := pongWait, pingPeriod
	pongWait, pingPeriod = 200*time.Millisecond, 50*time.Millisecond
	defer func() { pongWait, pingPeriod = oldPong, oldPing }()

	mgr := room.NewManager(room.Config{TickRate: 100}, nil, nil)
	defer mgr.Shutdown()
	srv := httptest.NewServer(NewMux(mgr, nil, Config{}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn := dial(t, wsURL)
	roomID := createRoom(t, conn, "Idle Lobby", "", "alice")

	// A host waiting for players sends nothing. Keep reading so the default
	// ping handler answers the server's pings; the connection must outlive
	// several pong windows on keepalive alone.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	select {
	case err := <-readErr:
		t.Fatalf("idle connection dropped: %v", err)
	case <-time.After(700 * time.Millisecond):
	}
	if _, ok := mgr.Get(roomID); !ok {
		t.Fatal("idle host's room should still exist")
	}
}

func TestHealthAndDiagnostics(t *testing.T) {
	srv, wsURL := startServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	host := dial(t, wsURL)
	createRoom(t, host, "Observed", "", "alice")

	resp, err = http.Get(srv.URL + "/diagnostics")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	defer resp.Body.Close()
	var diag struct {
		Status   string `json:"status"`
		TickRate int    `json:"tickRate"`
		Rooms    []struct {
			Name    string `json:"name"`
			Members int    `json:"members"`
		} `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&diag); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if diag.Status != "ok" || diag.TickRate != 100 {
		t.Fatalf("unexpected diagnostics header: %+v", diag)
	}
	if len(diag.Rooms) != 1 || diag.Rooms[0].Name != "Observed" || diag.Rooms[0].Members != 1 {
		t.Fatalf("unexpected diagnostics rooms: %+v", diag.Rooms)
	}
}
