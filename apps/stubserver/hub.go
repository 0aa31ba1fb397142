package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nekoweb/revolt/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local development server
	},
}

// hub fans out events to every authenticated socket.
type hub struct {
	world  *world
	tokens *tokenMinter
	logger *slog.Logger

	register   chan *socketClient
	unregister chan *socketClient
	broadcast  chan []byte
	clients    map[*socketClient]bool
}

func newHub(w *world, tokens *tokenMinter, logger *slog.Logger) *hub {
	return &hub{
		world:      w,
		tokens:     tokens,
		logger:     logger,
		register:   make(chan *socketClient),
		unregister: make(chan *socketClient),
		broadcast:  make(chan []byte),
		clients:    make(map[*socketClient]bool),
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("socket authenticated", "user_id", client.userID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case frame := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// publishMessage pushes a Message event to all connected clients.
func (h *hub) publishMessage(msg model.Message) {
	frame, err := json.Marshal(struct {
		Type string `json:"type"`
		model.Message
	}{Type: string(model.EventMessage), Message: msg})
	if err != nil {
		h.logger.Error("marshaling message event", "error", err)
		return
	}
	h.broadcast <- frame
}

// socketClient is a middleman between one websocket connection and the
// hub.
type socketClient struct {
	hub    *hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// serveWS upgrades the connection. The first frame from the client must
// be an Authenticate frame with a valid token; everything before that
// is rejected with an Error event and a close.
func serveWS(h *hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &socketClient{hub: h, conn: conn, send: make(chan []byte, 64)}
	go client.readPump()
}

// readPump waits for the Authenticate frame, then keeps reading only to
// notice the peer going away. Inbound traffic beyond authentication is
// ignored by the stub.
func (c *socketClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPingHandler(func(payload string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeWait))
	})

	if !c.authenticate() {
		return
	}

	c.hub.register <- c
	go c.writePump()
	defer func() { c.hub.unregister <- c }()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// authenticate reads the first frame, validates the token, and replies
// with Authenticated followed by the Ready snapshot.
func (c *socketClient) authenticate() bool {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return false
	}

	var frame model.Authenticate
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "Authenticate" {
		c.writeEvent(map[string]string{"type": "Error", "error": "LabelMe"})
		return false
	}

	claims, err := c.hub.tokens.validate(frame.Token)
	if err != nil {
		c.writeEvent(map[string]string{"type": "Error", "error": "InvalidSession"})
		return false
	}
	c.userID = claims.UserID

	if !c.writeEvent(map[string]string{"type": string(model.EventAuthenticated)}) {
		return false
	}

	users, channels := c.hub.world.snapshot()
	return c.writeEvent(struct {
		Type     string          `json:"type"`
		Users    []model.User    `json:"users"`
		Channels []model.Channel `json:"channels"`
	}{Type: string(model.EventReady), Users: users, Channels: channels})
}

func (c *socketClient) writeEvent(v any) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v) == nil
}

// writePump pumps hub frames to the websocket connection.
func (c *socketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
