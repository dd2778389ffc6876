package room

import (
	"crypto/rand"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"slipstream/internal/sim"
)

const (
	roomIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	roomIDLen   = 6
)

// Manager tracks live rooms by id. Rooms are created on request and removed
// when their last member leaves; a released id is immediately free for reuse
// by a later create.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg       Config
	log       *zap.SugaredLogger
	simulator func() sim.Simulator
	newID     func() string
}

// NewManager constructs a manager. simulator provides the per-room
// collaborator; nil means the reference flight simulator.
func NewManager(cfg Config, log *zap.SugaredLogger, simulator func() sim.Simulator) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if simulator == nil {
		simulator = func() sim.Simulator { return sim.NewFlightSimulator() }
	}
	return &Manager{
		rooms:     make(map[string]*Room),
		cfg:       cfg,
		log:       log,
		simulator: simulator,
		newID:     generateRoomID,
	}
}

// CreateRoom allocates a fresh room owned by identity and joins the creator.
// The id is regenerated until it misses every currently live room.
func (m *Manager) CreateRoom(identity, username, name, password string, conn Conn) (*Room, int, error) {
	if name == "" {
		name = "Unnamed Room"
	}

	m.mu.Lock()
	id := m.newID()
	for _, exists := m.rooms[id]; exists; _, exists = m.rooms[id] {
		id = m.newID()
	}
	r := New(id, name, password, identity, m.simulator(), m.cfg, m.log, m.removeRoom)
	m.rooms[id] = r
	m.mu.Unlock()

	index, err := r.Join(identity, username, password, conn)
	if err != nil {
		// Cannot happen with a matching password, but do not leak the room.
		m.removeRoom(id)
		r.Stop()
		return nil, 0, err
	}
	m.log.Infow("room created", "room", id, "name", name, "owner", username)
	return r, index, nil
}

// Join adds a member to an existing room.
func (m *Manager) Join(roomID, identity, username, password string, conn Conn) (*Room, int, error) {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, ErrRoomNotFound
	}
	index, err := r.Join(identity, username, password, conn)
	if err != nil {
		return nil, 0, err
	}
	return r, index, nil
}

// Get returns a live room by id.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Rooms lists all live rooms for the lobby browser.
func (m *Manager) Rooms() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	return out
}

// Shutdown stops every room. Used on server exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}

// removeRoom forgets a room id. Invoked from the room goroutine when the
// last member leaves; the room stops itself afterwards.
func (m *Manager) removeRoom(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; ok {
		delete(m.rooms, id)
		m.log.Infow("room released", "room", id)
	}
}

func generateRoomID() string {
	b := make([]byte, roomIDLen)
	max := big.NewInt(int64(len(roomIDChars)))
	for i := range b {
		n, _ := rand.Int(rand.Reader, max)
		b[i] = roomIDChars[n.Int64()]
	}
	return string(b)
}
