// Package session owns the authentication credential: establishing it,
// attaching it to outgoing traffic, and tearing it down.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nekoweb/revolt/pkg/api"
	"github.com/nekoweb/revolt/pkg/model"
)

// API is the slice of the REST gateway the manager needs.
type API interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Authenticator receives the session token once a login succeeds. The
// realtime channel implements it: it emits an Authenticate frame on the
// open socket, or holds the token until the socket comes up.
type Authenticator interface {
	Authenticate(token string)
}

// Manager holds the current session. Only the manager mutates it; the
// REST gateway and the realtime channel read it through Token(). A read
// racing a logout observes either the old token or "", never a
// partially cleared session.
type Manager struct {
	mu      sync.RWMutex
	current *model.Session

	api    API
	auth   Authenticator
	logger *slog.Logger
}

// NewManager returns a manager with no active session. The gateway and
// authenticator are attached with Bind, which breaks the construction
// cycle between the manager (a token source) and the components that
// consume tokens.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Bind attaches the REST gateway and the realtime authenticator. Must
// be called before Login; revolt.New does this during wiring.
func (m *Manager) Bind(a API, auth Authenticator) {
	m.api = a
	m.auth = auth
}

// Login exchanges credentials for a session. On success the session
// becomes current and the realtime channel is told to authenticate; a
// previously stored session is no longer used for new requests. On a
// multi-factor challenge the challenge is returned and no session is
// stored.
func (m *Manager) Login(ctx context.Context, email, password string) (*api.LoginResult, error) {
	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if result.MFA != nil {
		m.logger.Info("login requires second factor", "methods", result.MFA.AllowedMethods)
		return result, nil
	}

	sess := *result.Session
	if expiry := tokenExpiry(sess.Token); expiry != nil {
		sess.Expiry = expiry
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()

	m.logger.Info("session established", "user_id", sess.UserID, "session_id", sess.ID)

	if m.auth != nil {
		m.auth.Authenticate(sess.Token)
	}
	return result, nil
}

// Logout invalidates the current session server-side, then clears it
// locally. When the teardown call fails the session is kept and false
// is returned: the token is still valid on the server, and clearing
// only the local copy would strand it. The tradeoff is that a broken
// session cannot be force-cleared through this path.
func (m *Manager) Logout(ctx context.Context) bool {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current == nil {
		return false
	}

	if err := m.api.DeleteSession(ctx, current.ID); err != nil {
		m.logger.Error("session teardown failed, keeping session", "session_id", current.ID, "error", err)
		return false
	}

	m.mu.Lock()
	if m.current == current {
		m.current = nil
	}
	m.mu.Unlock()

	m.logger.Info("session cleared", "session_id", current.ID)
	return true
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	sess := *m.current
	return &sess
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// tokenExpiry extracts the expiry claim from a JWT-shaped token without
// verifying it. Production tokens are opaque and yield nil; the stub
// server mints JWTs, which makes local session expiry visible.
func tokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return nil
	}
	t := expiry.Time
	return &t
}
