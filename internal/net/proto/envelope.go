package proto

import (
	"encoding/json"
	"fmt"
)

// Envelope frames every websocket message: a type tag plus raw payload bytes,
// decoded in two stages so unknown types can be skipped cheaply.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

// Encode frames a payload under the given type tag. A nil payload is legal
// for bodyless messages such as leaveRoom.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty envelope type")
	}
	env := Envelope{T: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		env.P = raw
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses the outer frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode: empty message")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.T == "" {
		return Envelope{}, fmt.Errorf("decode: missing envelope type")
	}
	return env, nil
}

// DecodePayload parses an envelope's payload into the expected message type.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
