package room

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"slipstream/internal/net/proto"
	"slipstream/internal/sim"
)

// Conn is the send side of a member's connection. Send must not block the
// tick loop; implementations queue and drop rather than stall.
type Conn interface {
	Send([]byte) error
	Close() error
}

// Config tunes room behavior.
type Config struct {
	TickRate        int           // simulation + broadcast rate, Hz
	ChatMinInterval time.Duration // per-member chat rate limit
}

func (c Config) withDefaults() Config {
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.ChatMinInterval <= 0 {
		c.ChatMinInterval = 300 * time.Millisecond
	}
	return c
}

// Info is the lobby-browser view of a room.
type Info struct {
	ID               string
	Name             string
	RequiresPassword bool
	Members          int
}

type member struct {
	identity string
	username string
	conn     Conn
	lastChat time.Time
}

type joinCmd struct {
	identity string
	username string
	password string
	conn     Conn
	reply    chan joinResult
}

type joinResult struct {
	index int
	err   error
}

type leaveCmd struct{ identity string }

type inputCmd struct {
	identity string
	controls sim.Controls
}

type chatCmd struct {
	identity string
	text     string
}

type startCmd struct {
	identity string
	settings sim.Settings
	reply    chan error
}

// Room owns one authoritative world. All mutable state lives on the room
// goroutine; commands arrive through the inbox and the tick timer drives the
// simulation. Rooms are disjoint, so nothing here is shared across rooms.
type Room struct {
	ID   string
	Name string

	password string
	owner    string
	cfg      Config
	log      *zap.SugaredLogger
	onEmpty  func(id string)

	inbox    chan any
	quit     chan struct{}
	stopOnce sync.Once

	seq         atomic.Uint64
	memberCount atomic.Int32
	metrics     Metrics

	// Owned by the run goroutine.
	state     sim.WorldState
	simulator sim.Simulator
	members   *orderedmap.OrderedMap[string, *member]
	inputs    map[string]sim.Controls
	ticker    *time.Ticker
	tickC     <-chan time.Time
	started   bool
}

// New creates a room owned by the given identity and starts its goroutine.
// The owner still has to Join to become a member.
func New(id, name, password, owner string, simulator sim.Simulator, cfg Config, log *zap.SugaredLogger, onEmpty func(id string)) *Room {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if simulator == nil {
		simulator = sim.NewFlightSimulator()
	}
	r := &Room{
		ID:        id,
		Name:      name,
		password:  password,
		owner:     owner,
		cfg:       cfg.withDefaults(),
		log:       log,
		onEmpty:   onEmpty,
		inbox:     make(chan any, 256),
		quit:      make(chan struct{}),
		state:     sim.NewWorldState(),
		simulator: simulator,
		members:   orderedmap.NewOrderedMap[string, *member](),
		inputs:    make(map[string]sim.Controls),
	}
	go r.run()
	return r
}

// Stop terminates the room goroutine. Idempotent and safe on an already
// stopped room; the ticker is released on the way out so no timer outlives
// the room.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Join adds a member and returns its index. Fails with ErrInvalidPassword or
// ErrRoomNotFound (stopped room).
func (r *Room) Join(identity, username, password string, conn Conn) (int, error) {
	reply := make(chan joinResult, 1)
	cmd := joinCmd{identity: identity, username: username, password: password, conn: conn, reply: reply}
	select {
	case r.inbox <- cmd:
	case <-r.quit:
		return 0, ErrRoomNotFound
	}
	select {
	case res := <-reply:
		return res.index, res.err
	case <-r.quit:
		return 0, ErrRoomNotFound
	}
}

// Leave removes a member. The last member leaving tears the room down.
func (r *Room) Leave(identity string) {
	select {
	case r.inbox <- leaveCmd{identity: identity}:
	case <-r.quit:
	}
}

// HandleInput stores the latest control state for a member, overwriting any
// unconsumed previous sample.
func (r *Room) HandleInput(identity string, controls sim.Controls) {
	select {
	case r.inbox <- inputCmd{identity: identity, controls: controls}:
	case <-r.quit:
	}
}

// Chat fans a chat line out to the room, subject to rate limiting.
func (r *Room) Chat(identity, text string) {
	select {
	case r.inbox <- chatCmd{identity: identity, text: text}:
	case <-r.quit:
	}
}

// StartSimulation begins the tick loop. Only the owner may start; repeated
// requests are idempotent.
func (r *Room) StartSimulation(identity string, settings sim.Settings) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- startCmd{identity: identity, settings: settings, reply: reply}:
	case <-r.quit:
		return ErrRoomNotFound
	}
	select {
	case err := <-reply:
		return err
	case <-r.quit:
		return ErrRoomNotFound
	}
}

// Members returns the current member count.
func (r *Room) Members() int { return int(r.memberCount.Load()) }

// Seq returns the last broadcast sequence number.
func (r *Room) Seq() uint64 { return r.seq.Load() }

// Info returns the lobby view of this room.
func (r *Room) Info() Info {
	return Info{ID: r.ID, Name: r.Name, RequiresPassword: r.password != "", Members: r.Members()}
}

// MetricsSnapshot exposes the room counters for diagnostics.
func (r *Room) MetricsSnapshot() map[string]any { return r.metrics.Snapshot() }

func (r *Room) run() {
	defer func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
	}()
	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			r.handle(cmd)
		case <-r.tickC:
			r.tick()
		}
	}
}

func (r *Room) handle(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		c.reply <- r.handleJoin(c)
	case leaveCmd:
		r.handleLeave(c.identity)
	case inputCmd:
		if _, ok := r.members.Get(c.identity); ok {
			r.inputs[c.identity] = c.controls
			r.metrics.incInputs()
		}
	case chatCmd:
		r.handleChat(c)
	case startCmd:
		c.reply <- r.handleStart(c)
	}
}

func (r *Room) handleJoin(c joinCmd) joinResult {
	if r.password != "" && c.password != r.password {
		return joinResult{err: ErrInvalidPassword}
	}
	index := r.state.FindPlayer(c.identity)
	if index < 0 {
		index = sim.AddPlayer(&r.state, c.identity, c.username)
	}
	r.members.Set(c.identity, &member{identity: c.identity, username: c.username, conn: c.conn})
	r.memberCount.Store(int32(r.members.Len()))

	r.broadcastPlayerList()
	r.broadcastChat("System", fmt.Sprintf("%s has joined the room.", c.username))
	return joinResult{index: index}
}

func (r *Room) handleLeave(identity string) {
	m, ok := r.members.Get(identity)
	if !ok {
		return
	}
	r.members.Delete(identity)
	r.memberCount.Store(int32(r.members.Len()))
	delete(r.inputs, identity)
	sim.RemovePlayer(&r.state, identity)

	if r.members.Len() == 0 {
		if r.onEmpty != nil {
			r.onEmpty(r.ID)
		}
		r.Stop()
		return
	}
	r.broadcastPlayerList()
	r.broadcastChat("System", fmt.Sprintf("%s has left the room.", m.username))
}

func (r *Room) handleStart(c startCmd) error {
	if c.identity != r.owner {
		return ErrUnauthorized
	}
	if r.started {
		// Re-acknowledge so a repeated request still gets its confirmation.
		if m, ok := r.members.Get(c.identity); ok {
			if data, err := proto.Encode(proto.TypeSimulationStarted, nil); err == nil {
				_ = m.conn.Send(data)
			}
		}
		return nil
	}
	mode := c.settings.Mode
	if !sim.ValidMode(mode) {
		mode = "sandbox"
	}
	mapName := c.settings.Map
	if !sim.ValidMap(mapName) {
		mapName = "EmptySpace"
	}
	r.state.Settings.Mode = mode
	sim.LoadMap(&r.state, mapName)

	r.ticker = time.NewTicker(time.Second / time.Duration(r.cfg.TickRate))
	r.tickC = r.ticker.C
	r.started = true
	r.log.Infow("simulation started", "room", r.ID, "mode", mode, "map", mapName)

	r.broadcast(proto.TypeSimulationStarted, nil)
	return nil
}

func (r *Room) handleChat(c chatCmd) {
	m, ok := r.members.Get(c.identity)
	if !ok {
		return
	}
	now := time.Now()
	if now.Sub(m.lastChat) < r.cfg.ChatMinInterval {
		r.metrics.incChatSuppressed()
		return
	}
	text := sanitizeChat(c.text)
	if text == "" {
		return
	}
	m.lastChat = now
	r.broadcastChat(m.username, text)
}

// tick runs one simulation step and broadcasts the resulting snapshot. A
// fault inside the simulator skips the step, leaving the previous state
// intact; the room keeps ticking.
func (r *Room) tick() {
	start := time.Now()
	dt := 1.0 / float64(r.cfg.TickRate)

	for identity, controls := range r.inputs {
		if idx := r.state.FindPlayer(identity); idx >= 0 {
			r.state.Players[idx].Controls = controls
		}
	}

	next := r.state.Clone()
	if r.safeSimulate(&next, dt) {
		r.state = next
	}

	seq := r.seq.Add(1)
	snapshot := proto.WorldSnapshot{
		Seq:        seq,
		ServerTime: time.Now().UnixMilli(),
		State:      proto.EncodeState(&r.state),
	}
	data, err := proto.Encode(proto.TypeWorldSnapshot, snapshot)
	if err != nil {
		r.log.Errorw("failed to encode snapshot", "room", r.ID, "err", err)
		return
	}
	r.fanOut(data)
	r.metrics.addBroadcast(r.members.Len(), len(data))
	r.metrics.addTick(time.Since(start).Nanoseconds())
}

// safeSimulate isolates collaborator faults to this room's tick.
func (r *Room) safeSimulate(state *sim.WorldState, dt float64) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			r.metrics.incSimFaults()
			r.log.Errorw("simulation fault, skipping tick", "room", r.ID, "panic", rec)
			sentry.CaptureException(fmt.Errorf("room %s: simulation fault: %v", r.ID, rec))
		}
	}()
	r.simulator.Simulate(state, dt)
	return true
}

func (r *Room) broadcastPlayerList() {
	names := make([]string, 0, r.members.Len())
	for el := r.members.Front(); el != nil; el = el.Next() {
		names = append(names, el.Value.username)
	}
	r.broadcast(proto.TypePlayerListUpdate, proto.PlayerListUpdate{Players: names})
}

func (r *Room) broadcastChat(from, text string) {
	r.broadcast(proto.TypeChatBroadcast, proto.ChatBroadcast{From: from, Text: text, TS: time.Now().UnixMilli()})
}

func (r *Room) broadcast(msgType string, payload any) {
	data, err := proto.Encode(msgType, payload)
	if err != nil {
		r.log.Errorw("failed to encode broadcast", "room", r.ID, "type", msgType, "err", err)
		return
	}
	r.fanOut(data)
}

// fanOut delivers to every member, fire-and-forget. Members whose send side
// has failed are removed the same way a leave would remove them.
func (r *Room) fanOut(data []byte) {
	var failed []string
	for el := r.members.Front(); el != nil; el = el.Next() {
		if err := el.Value.conn.Send(data); err != nil {
			failed = append(failed, el.Key)
		}
	}
	for _, identity := range failed {
		r.log.Infow("dropping member with dead connection", "room", r.ID, "identity", identity)
		r.handleLeave(identity)
	}
}
