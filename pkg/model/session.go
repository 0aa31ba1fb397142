package model

import "time"

// Session is an authenticated identity: the token grants API access
// until logout or server-side rejection. At most one session is active
// per process. Expiry is populated only when the token itself carries
// one; production tokens are opaque and expire server-side.
type Session struct {
	ID     string     `json:"_id"`
	UserID string     `json:"user_id"`
	Token  string     `json:"token"`
	Expiry *time.Time `json:"-"`
}
