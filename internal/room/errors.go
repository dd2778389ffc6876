package room

import "errors"

// Request-scoped failures. Reported to the requester only; none of these are
// fatal to the room or the process.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUnauthorized    = errors.New("only the room owner can start the simulation")
	ErrInvalidPassword = errors.New("invalid password")
)
