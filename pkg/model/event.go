package model

import (
	"encoding/json"
	"fmt"
)

// EventType is the discriminator carried in the "type" field of every
// frame on the realtime socket.
type EventType string

const (
	EventAuthenticated EventType = "Authenticated"
	EventReady         EventType = "Ready"
	EventMessage       EventType = "Message"
	EventPong          EventType = "Pong"
	EventError         EventType = "Error"

	// EventUnimplemented is not a wire type: it is the local tag for any
	// frame whose discriminator the client does not recognize.
	EventUnimplemented EventType = "Unimplemented"
)

// Event is one typed notification pushed over the realtime channel.
// Events are transient: they are published to subscribers and never
// stored.
type Event interface {
	EventKind() EventType
}

// Authenticated confirms the server accepted the Authenticate frame.
type Authenticated struct{}

func (Authenticated) EventKind() EventType { return EventAuthenticated }

// Ready is the initial state dump sent once the connection is
// authenticated.
type Ready struct {
	Users    []User    `json:"users"`
	Channels []Channel `json:"channels"`
}

func (Ready) EventKind() EventType { return EventReady }

// MessageCreated carries a newly created message. The message fields
// sit at the top level of the frame, next to the discriminator.
type MessageCreated struct {
	Message
}

func (MessageCreated) EventKind() EventType { return EventMessage }

// Pong answers an application-level Ping frame.
type Pong struct {
	Data int `json:"data"`
}

func (Pong) EventKind() EventType { return EventPong }

// ErrorEvent reports a connection-scoped error from the server, which
// usually closes the socket right after sending it.
type ErrorEvent struct {
	Code string `json:"error"`
}

func (ErrorEvent) EventKind() EventType { return EventError }

// Unimplemented wraps any frame with an unrecognized discriminator. The
// raw payload is preserved so subscribers can still inspect it. One
// unknown server message type must never tear down the connection, so
// the decoder produces this variant instead of failing.
type Unimplemented struct {
	Type string
	Raw  json.RawMessage
}

func (Unimplemented) EventKind() EventType { return EventUnimplemented }

// Authenticate is the first client-to-server frame after connecting.
type Authenticate struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewAuthenticate builds the authenticate frame for a session token.
func NewAuthenticate(token string) Authenticate {
	return Authenticate{Type: "Authenticate", Token: token}
}

// DecodeEvent decodes one inbound frame against the event union. An
// unknown discriminator yields Unimplemented; an error is returned only
// when the frame is not valid JSON or a recognized variant fails to
// decode, and callers are expected to skip such frames rather than
// abort the read loop.
func DecodeEvent(raw []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("event frame is not valid JSON: %w", err)
	}

	switch EventType(probe.Type) {
	case EventAuthenticated:
		return Authenticated{}, nil
	case EventReady:
		var ev Ready
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decoding Ready event: %w", err)
		}
		return ev, nil
	case EventMessage:
		var ev MessageCreated
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decoding Message event: %w", err)
		}
		return ev, nil
	case EventPong:
		var ev Pong
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decoding Pong event: %w", err)
		}
		return ev, nil
	case EventError:
		var ev ErrorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decoding Error event: %w", err)
		}
		return ev, nil
	default:
		return Unimplemented{Type: probe.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
