package proto

// Client -> server message types.
const (
	TypeCreateRoom      = "createRoom"
	TypeJoinRoom        = "joinRoom"
	TypeStartSimulation = "startSimulation"
	TypePlayerInput     = "playerInput"
	TypeLeaveRoom       = "leaveRoom"
	TypeChatMessage     = "chatMessage"
	TypeGetRooms        = "getRooms"
)

// Server -> client message types.
const (
	TypeJoinedRoom        = "joinedRoom"
	TypePlayerListUpdate  = "playerListUpdate"
	TypeSimulationStarted = "simulationStarted"
	TypeStartFailure      = "startFailure"
	TypeWorldSnapshot     = "worldSnapshot"
	TypeChatBroadcast     = "chatMessage"
	TypeRoomList          = "roomList"
)

// CreateRoom opens a fresh room with the sender as owner.
type CreateRoom struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Username string `json:"username"`
}

// JoinRoom enters an existing room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// StartSimulation begins the room's tick loop. Owner only.
type StartSimulation struct {
	Mode string `json:"mode,omitempty"`
	Map  string `json:"map,omitempty"`
}

// PlayerInput carries the latest control state as an opaque name->bool map.
// The freshest sample wins; there is no input queue.
type PlayerInput struct {
	Controls map[string]bool `json:"controls"`
}

// ChatMessage is an inbound chat line.
type ChatMessage struct {
	Text string `json:"text"`
}

// JoinedRoom acknowledges createRoom/joinRoom.
type JoinedRoom struct {
	Success     bool   `json:"success"`
	RoomID      string `json:"roomId,omitempty"`
	MemberIndex int    `json:"memberIndex,omitempty"`
	Message     string `json:"message,omitempty"`
}

// PlayerListUpdate announces the current roster in join order.
type PlayerListUpdate struct {
	Players []string `json:"players"`
}

// StartFailure reports a rejected startSimulation request.
type StartFailure struct {
	Message string `json:"message"`
}

// ChatBroadcast fans a chat line out to the room.
type ChatBroadcast struct {
	From string `json:"from"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// RoomInfo is one entry of the lobby browser listing.
type RoomInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiresPassword bool   `json:"requiresPassword"`
}

// RoomList answers getRooms.
type RoomList struct {
	Rooms []RoomInfo `json:"rooms"`
}

// WorldSnapshot is the per-tick authoritative broadcast.
type WorldSnapshot struct {
	Seq        uint64    `json:"seq"`
	ServerTime int64     `json:"serverTime"`
	State      WireState `json:"state"`
}
