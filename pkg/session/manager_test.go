package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nekoweb/revolt/pkg/api"
	"github.com/nekoweb/revolt/pkg/model"
	"github.com/nekoweb/revolt/pkg/session"
)

type fakeAPI struct {
	loginResult *api.LoginResult
	loginErr    error
	deleteErr   error
	deleted     []string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*api.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) DeleteSession(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return f.deleteErr
}

type fakeAuthenticator struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fakeAuthenticator) Authenticate(token string) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func newManager(a session.API, auth session.Authenticator) *session.Manager {
	m := session.NewManager(nil)
	m.Bind(a, auth)
	return m
}

func TestLoginStoresSessionAndAuthenticates(t *testing.T) {
	fake := &fakeAPI{loginResult: &api.LoginResult{
		Session: &model.Session{ID: "s1", UserID: "u1", Token: "tok1"},
	}}
	auth := &fakeAuthenticator{}
	m := newManager(fake, auth)

	result, err := m.Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if result.Session == nil {
		t.Fatal("expected session in result")
	}

	current := m.Current()
	if current == nil || current.Token != "tok1" {
		t.Fatalf("session not stored: %+v", current)
	}
	if m.Token() != "tok1" {
		t.Fatalf("Token() = %q", m.Token())
	}
	if len(auth.tokens) != 1 || auth.tokens[0] != "tok1" {
		t.Fatalf("realtime not told to authenticate: %v", auth.tokens)
	}
}

func TestLoginMFAChallengeDoesNotStoreSession(t *testing.T) {
	fake := &fakeAPI{loginResult: &api.LoginResult{
		MFA: &api.MFAChallenge{Ticket: "tkt", AllowedMethods: []string{"Totp"}},
	}}
	auth := &fakeAuthenticator{}
	m := newManager(fake, auth)

	result, err := m.Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if result.MFA == nil {
		t.Fatal("challenge must be surfaced")
	}
	if m.Current() != nil {
		t.Fatal("MFA challenge must not store a session")
	}
	if len(auth.tokens) != 0 {
		t.Fatal("no authenticate frame before the second factor")
	}
}

func TestLoginErrorPassesThrough(t *testing.T) {
	fake := &fakeAPI{loginErr: &api.Error{Kind: api.KindUnauthorized}}
	m := newManager(fake, &fakeAuthenticator{})

	_, err := m.Login(context.Background(), "a@b.com", "bad")
	if !api.IsKind(err, api.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if m.Current() != nil {
		t.Fatal("failed login must not store a session")
	}
}

func TestLogoutTransportFailureKeepsSession(t *testing.T) {
	fake := &fakeAPI{
		loginResult: &api.LoginResult{Session: &model.Session{ID: "s1", UserID: "u1", Token: "tok1"}},
		deleteErr:   &api.Error{Kind: api.KindTransport, Err: errors.New("connection refused")},
	}
	m := newManager(fake, &fakeAuthenticator{})
	if _, err := m.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}

	if m.Logout(context.Background()) {
		t.Fatal("Logout must return false on transport failure")
	}
	if m.Current() == nil {
		t.Fatal("session must remain active when teardown could not reach the server")
	}
	if m.Token() != "tok1" {
		t.Fatalf("token cleared on failed logout: %q", m.Token())
	}
}

func TestLogoutSuccessClearsSession(t *testing.T) {
	fake := &fakeAPI{
		loginResult: &api.LoginResult{Session: &model.Session{ID: "s1", UserID: "u1", Token: "tok1"}},
	}
	m := newManager(fake, &fakeAuthenticator{})
	if _, err := m.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}

	if !m.Logout(context.Background()) {
		t.Fatal("Logout should succeed")
	}
	if m.Current() != nil {
		t.Fatal("session not cleared")
	}
	if m.Token() != "" {
		t.Fatalf("token still readable after logout: %q", m.Token())
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "s1" {
		t.Fatalf("server-side teardown used wrong session: %v", fake.deleted)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	fake := &fakeAPI{}
	m := newManager(fake, &fakeAuthenticator{})
	if m.Logout(context.Background()) {
		t.Fatal("Logout with no session must return false")
	}
	if len(fake.deleted) != 0 {
		t.Fatal("no teardown call expected without a session")
	}
}

func TestTokenRacingLogoutYieldsOldOrNone(t *testing.T) {
	fake := &fakeAPI{
		loginResult: &api.LoginResult{Session: &model.Session{ID: "s1", UserID: "u1", Token: "tok1"}},
	}
	m := newManager(fake, &fakeAuthenticator{})
	if _, err := m.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if tok := m.Token(); tok != "tok1" && tok != "" {
				t.Errorf("torn token read: %q", tok)
				return
			}
		}
	}()
	m.Logout(context.Background())
	<-done
}

func TestLoginExtractsJWTExpiry(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	fake := &fakeAPI{loginResult: &api.LoginResult{
		Session: &model.Session{ID: "s1", UserID: "u1", Token: signed},
	}}
	m := newManager(fake, &fakeAuthenticator{})
	if _, err := m.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}

	current := m.Current()
	if current.Expiry == nil {
		t.Fatal("expected expiry extracted from JWT-shaped token")
	}
	if !current.Expiry.Equal(expiresAt) {
		t.Fatalf("expiry = %v, want %v", current.Expiry, expiresAt)
	}
}

func TestLoginOpaqueTokenNoExpiry(t *testing.T) {
	fake := &fakeAPI{loginResult: &api.LoginResult{
		Session: &model.Session{ID: "s1", UserID: "u1", Token: "opaque-token"},
	}}
	m := newManager(fake, &fakeAuthenticator{})
	if _, err := m.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if m.Current().Expiry != nil {
		t.Fatal("opaque token must not yield an expiry")
	}
}
