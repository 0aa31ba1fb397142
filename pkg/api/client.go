// Package api is the REST gateway: a stateless request builder and
// executor for authentication and resource operations. Every
// successful read merges the returned entities into the object cache
// before handing them back, so cache population is a side effect of
// reading, not a separate step.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nekoweb/revolt/pkg/cache"
	"github.com/nekoweb/revolt/pkg/config"
	"github.com/nekoweb/revolt/pkg/model"
	"github.com/nekoweb/revolt/pkg/ulid"
)

// sessionHeader carries the session token on every authenticated call.
const sessionHeader = "X-Session-Token"

// TokenSource yields the current session token, or "" when no session
// is active. Reads must be atomic with respect to a concurrent logout:
// the caller gets either the old token or nothing, never a torn value.
type TokenSource interface {
	Token() string
}

// Client issues REST operations against the service. It is safe for
// concurrent use; each call is an ordinary blocking request bounded by
// the configured timeout.
type Client struct {
	baseURL    string
	mediaURL   string
	httpClient *http.Client
	tokens     TokenSource
	cache      *cache.Store
	nonces     *ulid.Generator
	logger     *slog.Logger
}

// NewClient builds a gateway from the shared configuration. tokens may
// be nil for a client that only performs unauthenticated calls.
func NewClient(cfg config.Config, tokens TokenSource, store *cache.Store, logger *slog.Logger) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api: APIBaseURL is required")
	}
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid APIBaseURL %q: %w", cfg.APIBaseURL, err)
	}
	if store == nil {
		return nil, fmt.Errorf("api: cache store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		mediaURL:   strings.TrimRight(cfg.MediaBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		tokens:     tokens,
		cache:      store,
		nonces:     ulid.NewGenerator(),
		logger:     logger,
	}, nil
}

// AvatarURL resolves an avatar attachment reference against the media
// base URL. Only the URL is produced; fetching bytes is out of scope.
func (c *Client) AvatarURL(attachmentID string) string {
	return c.mediaURL + "/avatars/" + url.PathEscape(attachmentID)
}

// LoginResult is the outcome of a successful login exchange: either a
// session, or a multi-factor challenge that must be surfaced to the
// user rather than silently dropped.
type LoginResult struct {
	Session *model.Session
	MFA     *MFAChallenge
}

// MFAChallenge asks the caller to complete a second factor.
type MFAChallenge struct {
	Ticket         string   `json:"ticket"`
	AllowedMethods []string `json:"allowed_methods"`
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

type loginResponse struct {
	Result string `json:"result"`

	// Success fields.
	ID     string `json:"_id"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`

	// MFA fields.
	Ticket         string   `json:"ticket"`
	AllowedMethods []string `json:"allowed_methods"`
}

// Login exchanges credentials for a session. Invalid credentials come
// back as KindUnauthorized; an unreachable server as KindTransport; a
// malformed response as KindProtocol.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := loginRequest{Email: email, Password: password, FriendlyName: "revolt-go"}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/session/login", false, body, &resp); err != nil {
		return nil, err
	}

	switch resp.Result {
	case "Success":
		if resp.Token == "" {
			return nil, &Error{Kind: KindProtocol, Message: "login response missing token"}
		}
		return &LoginResult{Session: &model.Session{
			ID:     resp.ID,
			UserID: resp.UserID,
			Token:  resp.Token,
		}}, nil
	case "MFA":
		return &LoginResult{MFA: &MFAChallenge{
			Ticket:         resp.Ticket,
			AllowedMethods: resp.AllowedMethods,
		}}, nil
	default:
		return nil, &Error{Kind: KindProtocol, Message: fmt.Sprintf("unexpected login result %q", resp.Result)}
	}
}

// DeleteSession invalidates a session server-side. The current token
// authenticates the call.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/auth/session/" + url.PathEscape(sessionID)
	return c.do(ctx, http.MethodDelete, path, true, nil, nil)
}

// ListDirectConversations fetches the user's direct-message and group
// channels, merging each into the cache.
func (c *Client) ListDirectConversations(ctx context.Context) ([]model.Channel, error) {
	var channels []model.Channel
	if err := c.do(ctx, http.MethodGet, "/users/dms", true, nil, &channels); err != nil {
		return nil, err
	}
	for i := range channels {
		ch := channels[i]
		c.cache.Put(&ch)
	}
	return channels, nil
}

// ListMessages fetches up to limit messages from a channel, newest
// first, merging each into the cache.
func (c *Client) ListMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	path := "/channels/" + url.PathEscape(channelID) + "/messages?limit=" + strconv.Itoa(limit)

	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, path, true, nil, &messages); err != nil {
		return nil, err
	}
	for i := range messages {
		m := messages[i]
		c.cache.Put(&m)
	}
	return messages, nil
}

// GetMessage fetches a single message and merges it into the cache.
func (c *Client) GetMessage(ctx context.Context, channelID, messageID string) (*model.Message, error) {
	path := "/channel/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)

	var message model.Message
	if err := c.do(ctx, http.MethodGet, path, true, nil, &message); err != nil {
		return nil, err
	}
	c.cache.Put(&message)
	return &message, nil
}

// SendMessage posts a message to a channel. The result is NOT merged
// into the cache: the eventual Message event on the realtime channel
// populates state, and its cache key equals the ID returned here, so
// both paths land on the same entry. Callers wanting optimistic UI
// track drafts themselves.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*model.Message, error) {
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	body := model.Message{Content: content, Nonce: c.nonces.Generate()}

	var message model.Message
	if err := c.do(ctx, http.MethodPost, path, true, body, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// do builds and executes one request, classifying the outcome into the
// error taxonomy. out may be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, authenticated bool, requestBody, out any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return &Error{Kind: KindProtocol, Message: "encoding request body", Err: err}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &Error{Kind: KindProtocol, Message: "building request", Err: err}
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if authenticated && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			request.Header.Set(sessionHeader, token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &Error{Kind: KindTransport, Message: method + " " + path, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "reading response body", Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return c.statusError(method, path, response.StatusCode, responseBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return &Error{Kind: KindProtocol, Status: response.StatusCode, Message: "decoding response body", Err: err}
	}
	return nil
}

// errorBody is the service's uniform error shape.
type errorBody struct {
	Type string `json:"type"`
}

func (c *Client) statusError(method, path string, status int, body []byte) error {
	kind := KindServerRejected
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindUnauthorized
	}

	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	c.logger.Debug("request rejected",
		"method", method,
		"path", path,
		"status", status,
		"code", parsed.Type,
	)

	return &Error{
		Kind:    kind,
		Status:  status,
		Code:    parsed.Type,
		Message: strings.TrimSpace(string(body)),
	}
}
