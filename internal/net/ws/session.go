package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slipstream/internal/net/proto"
	"slipstream/internal/room"
	"slipstream/internal/sim"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 1 << 20
	sendQueue    = 64
)

// Keepalive timing. Pings must outpace the read deadline or an idle but
// healthy member gets dropped. Vars so tests can compress the window.
var (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var errSessionClosed = errors.New("session closed")

// session is the per-connection context: the identity, username, and room
// membership that the original kept in connection-scoped globals. It is also
// the room.Conn for this member; outbound messages go through a buffered
// queue drained by writePump so the tick loop never blocks on a slow socket.
type session struct {
	mgr  *room.Manager
	log  *zap.SugaredLogger
	conn *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	// Touched only by readLoop.
	identity string
	username string
	room     *room.Room
}

func newSession(mgr *room.Manager, log *zap.SugaredLogger, conn *websocket.Conn) *session {
	return &session{
		mgr:    mgr,
		log:    log,
		conn:   conn,
		send:   make(chan []byte, sendQueue),
		closed: make(chan struct{}),
	}
}

// Send queues a message for the write pump. A full queue drops the message —
// snapshots supersede each other, so freshness beats completeness here.
func (s *session) Send(b []byte) error {
	select {
	case <-s.closed:
		return errSessionClosed
	case s.send <- b:
		return nil
	default:
		return nil
	}
}

// Close shuts the connection down. Idempotent.
func (s *session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return s.conn.Close()
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case <-s.closed:
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop services inbound messages until the connection drops, then makes
// sure the member leaves its room so no membership outlives the socket.
func (s *session) readLoop() {
	defer func() {
		if s.room != nil {
			s.room.Leave(s.identity)
		}
		s.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			s.log.Debugw("discarding malformed message", "err", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *session) dispatch(env proto.Envelope) {
	switch env.T {
	case proto.TypeCreateRoom:
		s.handleCreateRoom(env)
	case proto.TypeJoinRoom:
		s.handleJoinRoom(env)
	case proto.TypeStartSimulation:
		s.handleStart(env)
	case proto.TypePlayerInput:
		s.handleInput(env)
	case proto.TypeLeaveRoom:
		s.handleLeave()
	case proto.TypeChatMessage:
		s.handleChat(env)
	case proto.TypeGetRooms:
		s.handleGetRooms()
	default:
		s.log.Debugw("unknown message type", "type", env.T)
	}
}

func (s *session) handleCreateRoom(env proto.Envelope) {
	msg, err := proto.DecodePayload[proto.CreateRoom](env)
	if err != nil {
		s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: false, Message: "malformed request"})
		return
	}
	s.leaveCurrent()

	identity := uuid.NewString()
	username := room.SanitizeUsername(msg.Username)
	r, index, err := s.mgr.CreateRoom(identity, username, msg.Name, msg.Password, s)
	if err != nil {
		s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: false, Message: err.Error()})
		return
	}
	s.identity = identity
	s.username = username
	s.room = r
	s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: true, RoomID: r.ID, MemberIndex: index})
}

func (s *session) handleJoinRoom(env proto.Envelope) {
	msg, err := proto.DecodePayload[proto.JoinRoom](env)
	if err != nil {
		s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: false, Message: "malformed request"})
		return
	}
	s.leaveCurrent()

	identity := uuid.NewString()
	username := room.SanitizeUsername(msg.Username)
	r, index, err := s.mgr.Join(msg.RoomID, identity, username, msg.Password, s)
	if err != nil {
		s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: false, Message: joinFailureMessage(err)})
		return
	}
	s.identity = identity
	s.username = username
	s.room = r
	s.reply(proto.TypeJoinedRoom, proto.JoinedRoom{Success: true, RoomID: r.ID, MemberIndex: index})
}

func joinFailureMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, room.ErrInvalidPassword):
		return "Invalid password"
	default:
		return err.Error()
	}
}

func (s *session) handleStart(env proto.Envelope) {
	if s.room == nil {
		s.reply(proto.TypeStartFailure, proto.StartFailure{Message: "Not in a room"})
		return
	}
	var settings sim.Settings
	if len(env.P) > 0 {
		if msg, err := proto.DecodePayload[proto.StartSimulation](env); err == nil {
			settings = sim.Settings{Mode: msg.Mode, Map: msg.Map}
		}
	}
	if err := s.room.StartSimulation(s.identity, settings); err != nil {
		msg := err.Error()
		if errors.Is(err, room.ErrUnauthorized) {
			msg = "Only the room creator can start the game"
		}
		s.reply(proto.TypeStartFailure, proto.StartFailure{Message: msg})
	}
}

func (s *session) handleInput(env proto.Envelope) {
	if s.room == nil {
		return
	}
	msg, err := proto.DecodePayload[proto.PlayerInput](env)
	if err != nil {
		return
	}
	s.room.HandleInput(s.identity, sim.ControlsFromMap(msg.Controls))
}

func (s *session) handleLeave() {
	s.leaveCurrent()
}

func (s *session) handleChat(env proto.Envelope) {
	if s.room == nil {
		return
	}
	msg, err := proto.DecodePayload[proto.ChatMessage](env)
	if err != nil {
		return
	}
	s.room.Chat(s.identity, msg.Text)
}

func (s *session) handleGetRooms() {
	infos := s.mgr.Rooms()
	rooms := make([]proto.RoomInfo, 0, len(infos))
	for _, info := range infos {
		rooms = append(rooms, proto.RoomInfo{ID: info.ID, Name: info.Name, RequiresPassword: info.RequiresPassword})
	}
	s.reply(proto.TypeRoomList, proto.RoomList{Rooms: rooms})
}

func (s *session) leaveCurrent() {
	if s.room == nil {
		return
	}
	s.room.Leave(s.identity)
	s.room = nil
	s.identity = ""
}

func (s *session) reply(msgType string, payload any) {
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		s.log.Errorw("failed to encode reply", "type", msgType, "err", err)
		return
	}
	_ = s.Send(data)
}
