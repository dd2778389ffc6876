package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slipstream/internal/net/proto"
	"slipstream/internal/netsync"
	"slipstream/internal/sim"
)

const requestTimeout = 5 * time.Second

// Client is a headless networked session: it speaks the lobby protocol and
// feeds every accepted worldSnapshot through the netsync pipeline so callers
// can sample a smooth render state each frame.
type Client struct {
	conn    *websocket.Conn
	session *netsync.Session
	log     *zap.SugaredLogger

	writeMu sync.Mutex

	mu          sync.Mutex
	roomID      string
	memberIndex int
	players     []string

	joined    chan proto.JoinedRoom
	started   chan struct{}
	startErrs chan string
	roomLists chan []proto.RoomInfo
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a server's /ws endpoint and starts the receive loop.
func Dial(ctx context.Context, url string, syncCfg netsync.Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:      conn,
		session:   netsync.NewSession(syncCfg, log),
		log:       log,
		joined:    make(chan proto.JoinedRoom, 1),
		started:   make(chan struct{}, 1),
		startErrs: make(chan string, 1),
		roomLists: make(chan []proto.RoomInfo, 1),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// CreateRoom opens a room and waits for the server's acknowledgement.
func (c *Client) CreateRoom(name, password, username string) (proto.JoinedRoom, error) {
	if err := c.write(proto.TypeCreateRoom, proto.CreateRoom{Name: name, Password: password, Username: username}); err != nil {
		return proto.JoinedRoom{}, err
	}
	return c.awaitJoin()
}

// JoinRoom enters an existing room and waits for the acknowledgement.
func (c *Client) JoinRoom(roomID, username, password string) (proto.JoinedRoom, error) {
	if err := c.write(proto.TypeJoinRoom, proto.JoinRoom{RoomID: roomID, Username: username, Password: password}); err != nil {
		return proto.JoinedRoom{}, err
	}
	return c.awaitJoin()
}

func (c *Client) awaitJoin() (proto.JoinedRoom, error) {
	select {
	case ack := <-c.joined:
		if ack.Success {
			c.mu.Lock()
			c.roomID = ack.RoomID
			c.memberIndex = ack.MemberIndex
			c.mu.Unlock()
			c.session.Reset()
		}
		return ack, nil
	case <-c.done:
		return proto.JoinedRoom{}, fmt.Errorf("connection closed")
	case <-time.After(requestTimeout):
		return proto.JoinedRoom{}, fmt.Errorf("join timed out")
	}
}

// StartSimulation asks the server to begin ticking and waits for either
// simulationStarted or a startFailure.
func (c *Client) StartSimulation(mode, mapName string) error {
	if err := c.write(proto.TypeStartSimulation, proto.StartSimulation{Mode: mode, Map: mapName}); err != nil {
		return err
	}
	select {
	case <-c.started:
		return nil
	case msg := <-c.startErrs:
		return fmt.Errorf("start rejected: %s", msg)
	case <-c.done:
		return fmt.Errorf("connection closed")
	case <-time.After(requestTimeout):
		return fmt.Errorf("start timed out")
	}
}

// SendInput ships the current control state. Fire-and-forget.
func (c *Client) SendInput(controls sim.Controls) error {
	return c.write(proto.TypePlayerInput, proto.PlayerInput{Controls: controls.Map()})
}

// SendChat ships a chat line.
func (c *Client) SendChat(text string) error {
	return c.write(proto.TypeChatMessage, proto.ChatMessage{Text: text})
}

// LeaveRoom exits the current room.
func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	c.roomID = ""
	c.mu.Unlock()
	return c.write(proto.TypeLeaveRoom, nil)
}

// Rooms fetches the lobby listing.
func (c *Client) Rooms() ([]proto.RoomInfo, error) {
	if err := c.write(proto.TypeGetRooms, nil); err != nil {
		return nil, err
	}
	select {
	case rooms := <-c.roomLists:
		return rooms, nil
	case <-c.done:
		return nil, fmt.Errorf("connection closed")
	case <-time.After(requestTimeout):
		return nil, fmt.Errorf("getRooms timed out")
	}
}

// RenderState samples the interpolated world for the current frame.
func (c *Client) RenderState(now time.Time) (sim.WorldState, bool) {
	return c.session.RenderState(now)
}

// MemberIndex returns this client's slot in the room it joined.
func (c *Client) MemberIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memberIndex
}

// Players returns the latest roster.
func (c *Client) Players() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.players))
	copy(out, c.players)
	return out
}

// SyncDiagnostics exposes the live clock/buffer estimates.
func (c *Client) SyncDiagnostics() (offsetMs, intervalSec float64, buffered int, dropped uint64) {
	return c.session.Diagnostics()
}

func (c *Client) write(msgType string, payload any) error {
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(requestTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		receivedAt := time.Now()

		env, err := proto.DecodeEnvelope(payload)
		if err != nil {
			c.log.Debugw("discarding malformed server message", "err", err)
			continue
		}
		switch env.T {
		case proto.TypeWorldSnapshot:
			msg, err := proto.DecodePayload[proto.WorldSnapshot](env)
			if err != nil {
				c.log.Warnw("discarding malformed snapshot", "err", err)
				continue
			}
			c.session.HandleSnapshot(netsync.Snapshot{
				Sequence:   msg.Seq,
				ServerTime: msg.ServerTime,
				State:      proto.DecodeState(msg.State, c.log),
			}, receivedAt)
		case proto.TypeJoinedRoom:
			if msg, err := proto.DecodePayload[proto.JoinedRoom](env); err == nil {
				select {
				case c.joined <- msg:
				default:
				}
			}
		case proto.TypePlayerListUpdate:
			if msg, err := proto.DecodePayload[proto.PlayerListUpdate](env); err == nil {
				c.mu.Lock()
				c.players = msg.Players
				c.mu.Unlock()
			}
		case proto.TypeSimulationStarted:
			select {
			case c.started <- struct{}{}:
			default:
			}
		case proto.TypeStartFailure:
			if msg, err := proto.DecodePayload[proto.StartFailure](env); err == nil {
				select {
				case c.startErrs <- msg.Message:
				default:
				}
			}
		case proto.TypeChatBroadcast:
			if msg, err := proto.DecodePayload[proto.ChatBroadcast](env); err == nil {
				c.log.Infow("chat", "from", msg.From, "text", msg.Text)
			}
		case proto.TypeRoomList:
			if msg, err := proto.DecodePayload[proto.RoomList](env); err == nil {
				select {
				case c.roomLists <- msg.Rooms:
				default:
				}
			}
		default:
			c.log.Debugw("unknown server message", "type", env.T)
		}
	}
}
