package model

// Presence values reported in a user's status.
const (
	PresenceOnline    = "Online"
	PresenceIdle      = "Idle"
	PresenceBusy      = "Busy"
	PresenceInvisible = "Invisible"
)

// Attachment is a reference to a static asset (avatar, icon). Only the
// reference is stored; resolving it to bytes is the media CDN's job.
type Attachment struct {
	ID  string `json:"_id"`
	Tag string `json:"tag,omitempty"`
}

// Status is a user's presence and optional custom status text.
type Status struct {
	Text     string `json:"text,omitempty"`
	Presence string `json:"presence,omitempty"`
}

// User is populated lazily as users are referenced by channels,
// messages and events.
type User struct {
	ID            string      `json:"_id"`
	Username      string      `json:"username"`
	Discriminator string      `json:"discriminator,omitempty"`
	DisplayName   string      `json:"display_name,omitempty"`
	Avatar        *Attachment `json:"avatar,omitempty"`
	Status        *Status     `json:"status,omitempty"`
	Flags         int         `json:"flags,omitempty"`
}

func (u *User) EntityID() string { return u.ID }

func (u *User) EntityKind() Kind { return KindUser }
