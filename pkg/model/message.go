package model

import "time"

// Message is a single chat message. ID is empty on a client-side draft
// and assigned by the server; Nonce is the client-chosen idempotency
// key that lets the server deduplicate retried sends.
type Message struct {
	ID        string    `json:"_id,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	ChannelID string    `json:"channel"`
	AuthorID  string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

func (m *Message) EntityID() string { return m.ID }

func (m *Message) EntityKind() Kind { return KindMessage }
