// Package realtime maintains the one long-lived connection to the
// event socket: it dials, authenticates, decodes inbound frames into
// typed events, republishes them on the event bus, and reconnects with
// capped backoff when the connection drops.
package realtime

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nekoweb/revolt/pkg/api"
	"github.com/nekoweb/revolt/pkg/cache"
	"github.com/nekoweb/revolt/pkg/config"
	"github.com/nekoweb/revolt/pkg/events"
	"github.com/nekoweb/revolt/pkg/model"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// State is the connection lifecycle position.
type State int32

const (
	Disconnected State = iota
	Connecting
	AwaitingAuth
	Live
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AwaitingAuth:
		return "awaiting_auth"
	case Live:
		return "live"
	default:
		return "disconnected"
	}
}

// Channel owns the realtime connection. Run drives the whole lifecycle
// on the caller's goroutine; everything else is safe to call
// concurrently.
type Channel struct {
	cfg    config.Config
	dialer *websocket.Dialer
	bus    *events.Bus
	cache  *cache.Store
	tokens api.TokenSource
	logger *slog.Logger

	state atomic.Int32

	mu      sync.Mutex // guards conn and pending
	conn    *websocket.Conn
	pending string // token received before any connection existed

	writeMu sync.Mutex // gorilla allows one concurrent writer
}

// New builds a channel. tokens may be nil; the connection then stays in
// AwaitingAuth until Authenticate is called.
func New(cfg config.Config, bus *events.Bus, store *cache.Store, tokens api.TokenSource, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		bus:    bus,
		cache:  store,
		tokens: tokens,
		logger: logger,
	}
}

// State returns the current lifecycle position.
func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
}

// Authenticate sends an Authenticate frame carrying the token, or
// queues the token when no connection is open yet. The session manager
// calls this after every successful login.
func (c *Channel) Authenticate(token string) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.pending = token
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.sendAuthenticate(conn, token)
}

// sendAuthenticate emits the frame and promotes the state to Live. The
// channel is Live as soon as the frame is written: the server may still
// reject the token, in which case it closes the connection and the
// state falls back to Disconnected through the normal error path.
func (c *Channel) sendAuthenticate(conn *websocket.Conn, token string) {
	if err := c.writeJSON(conn, model.NewAuthenticate(token)); err != nil {
		c.logger.Warn("writing authenticate frame", "error", err)
		return
	}
	if c.State() == AwaitingAuth {
		c.setState(Live)
	}
}

func (c *Channel) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// Run connects and serves until ctx is cancelled. Connection-level
// failures are logged, never returned: they terminate only the current
// attempt, and the next attempt starts after a backoff delay that
// doubles up to the configured cap with jitter to avoid a tight
// reconnect loop.
func (c *Channel) Run(ctx context.Context) {
	backoff := c.cfg.ReconnectMin

	for {
		if ctx.Err() != nil {
			c.setState(Disconnected)
			return
		}

		c.setState(Connecting)
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.WSURL, nil)
		if err != nil {
			c.setState(Disconnected)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("realtime dial failed", "url", c.cfg.WSURL, "retry_in", backoff, "error", err)
			if !sleep(ctx, withJitter(backoff)) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.ReconnectMax)
			continue
		}
		backoff = c.cfg.ReconnectMin

		c.attach(conn)
		err = c.serve(ctx, conn)
		c.detach(conn)
		c.setState(Disconnected)

		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("realtime connection lost", "retry_in", backoff, "error", err)
		if !sleep(ctx, withJitter(backoff)) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.ReconnectMax)
	}
}

// attach publishes the new connection and authenticates it when a
// token is already known, either queued by Authenticate or held by the
// session manager.
func (c *Channel) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	token := c.pending
	c.pending = ""
	c.mu.Unlock()

	c.setState(AwaitingAuth)

	if token == "" && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		c.sendAuthenticate(conn, token)
	}
}

func (c *Channel) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// serve runs the decode loop until the connection dies or ctx is
// cancelled. Decode failures on individual frames are logged and
// skipped; only I/O errors end the loop.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go c.pingLoop(conn, done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := model.DecodeEvent(raw)
		if err != nil {
			c.logger.Warn("skipping undecodable frame", "error", err)
			continue
		}
		c.handle(ev)
	}
}

// handle merges the event into the cache where applicable, then
// publishes it. Publication is synchronous with respect to decode
// order, so subscribers observe events exactly as they arrived on the
// wire.
func (c *Channel) handle(ev model.Event) {
	switch ev := ev.(type) {
	case model.Ready:
		for i := range ev.Users {
			u := ev.Users[i]
			c.cache.Put(&u)
		}
		for i := range ev.Channels {
			ch := ev.Channels[i]
			c.cache.Put(&ch)
		}
	case model.MessageCreated:
		msg := ev.Message
		c.cache.Put(&msg)
	case model.ErrorEvent:
		c.logger.Error("server reported connection error", "code", ev.Code)
	case model.Unimplemented:
		c.logger.Debug("unimplemented event", "type", ev.Type)
	}

	c.bus.Publish(ev)
}

func (c *Channel) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// sleep waits for d or until ctx is cancelled, reporting whether the
// full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}

// withJitter spreads retries across half a window so clients that lost
// the same server don't reconnect in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
