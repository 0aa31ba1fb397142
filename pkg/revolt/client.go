// Package revolt assembles the access layer: one Client per process
// wires the object cache, event bus, REST gateway, realtime channel and
// session manager together, replacing any notion of process-global
// state. Tests construct a fresh Client each.
package revolt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nekoweb/revolt/pkg/api"
	"github.com/nekoweb/revolt/pkg/cache"
	"github.com/nekoweb/revolt/pkg/config"
	"github.com/nekoweb/revolt/pkg/events"
	"github.com/nekoweb/revolt/pkg/realtime"
	"github.com/nekoweb/revolt/pkg/session"
)

// Client is the per-process context object. Construct with New, start
// the realtime loop with Connect, and stop everything with Close.
type Client struct {
	cache    *cache.Store
	bus      *events.Bus
	api      *api.Client
	realtime *realtime.Channel
	sessions *session.Manager

	cancel context.CancelFunc
	done   chan struct{}
}

// New wires all components against the given endpoints. A nil logger
// falls back to slog.Default.
func New(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := cache.NewStore()
	bus := events.NewBus(logger)
	sessions := session.NewManager(logger)

	apiClient, err := api.NewClient(cfg, sessions, store, logger)
	if err != nil {
		return nil, fmt.Errorf("revolt: building REST gateway: %w", err)
	}

	channel := realtime.New(cfg, bus, store, sessions, logger)
	sessions.Bind(apiClient, channel)

	return &Client{
		cache:    store,
		bus:      bus,
		api:      apiClient,
		realtime: channel,
		sessions: sessions,
	}, nil
}

// Connect starts the realtime loop on its own goroutine. It may be
// called before or after login: the channel authenticates as soon as a
// session token exists.
func (c *Client) Connect(ctx context.Context) {
	if c.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.realtime.Run(runCtx)
	}()
}

// Close stops the realtime loop and releases the connection. It is a
// no-op when Connect was never called.
func (c *Client) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}

// API returns the REST gateway.
func (c *Client) API() *api.Client { return c.api }

// Cache returns the shared object cache.
func (c *Client) Cache() *cache.Store { return c.cache }

// Events returns the event bus.
func (c *Client) Events() *events.Bus { return c.bus }

// Sessions returns the session manager.
func (c *Client) Sessions() *session.Manager { return c.sessions }

// Realtime returns the realtime channel, mainly for state inspection.
func (c *Client) Realtime() *realtime.Channel { return c.realtime }
