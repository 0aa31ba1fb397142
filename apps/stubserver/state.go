package main

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekoweb/revolt/pkg/model"
	"github.com/nekoweb/revolt/pkg/ulid"
)

var (
	errBadCredentials  = errors.New("invalid credentials")
	errUnknownChannel  = errors.New("unknown channel")
	errUnknownMessage  = errors.New("unknown message")
	errUnknownSession  = errors.New("unknown session")
	errDuplicateNonce  = errors.New("duplicate nonce")
)

type account struct {
	email    string
	password string
	userID   string
}

// world is the stub server's whole universe: a few seeded accounts, a
// DM channel between them, and the messages sent so far. Everything
// lives in memory; restarting the server resets it.
type world struct {
	mu       sync.RWMutex
	accounts map[string]account         // email -> account
	users    map[string]*model.User     // user id -> user
	channels map[string]*model.Channel  // channel id -> channel
	messages map[string][]model.Message // channel id -> messages in send order
	byNonce  map[string]string          // nonce -> message id
	sessions map[string]string          // session id -> user id

	ids *ulid.Generator
}

func newWorld() *world {
	w := &world{
		accounts: make(map[string]account),
		users:    make(map[string]*model.User),
		channels: make(map[string]*model.Channel),
		messages: make(map[string][]model.Message),
		byNonce:  make(map[string]string),
		sessions: make(map[string]string),
		ids:      ulid.NewGenerator(),
	}
	w.seed()
	return w
}

// seed creates two users that can message each other out of the box.
func (w *world) seed() {
	alice := &model.User{
		ID:            uuid.NewString(),
		Username:      "alice",
		Discriminator: "0001",
		DisplayName:   "Alice",
		Status:        &model.Status{Presence: model.PresenceOnline},
	}
	bob := &model.User{
		ID:            uuid.NewString(),
		Username:      "bob",
		Discriminator: "0002",
		DisplayName:   "Bob",
		Status:        &model.Status{Presence: model.PresenceIdle},
	}
	dm := &model.Channel{
		ID:         w.ids.Generate(),
		Type:       string(model.ChannelDirect),
		Recipients: []string{alice.ID, bob.ID},
		Active:     true,
	}

	w.users[alice.ID] = alice
	w.users[bob.ID] = bob
	w.channels[dm.ID] = dm
	w.accounts["alice@example.com"] = account{email: "alice@example.com", password: "password", userID: alice.ID}
	w.accounts["bob@example.com"] = account{email: "bob@example.com", password: "password", userID: bob.ID}
}

// login checks credentials and records a new session, returning its ID.
func (w *world) login(email, password string) (sessionID, userID string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	acct, ok := w.accounts[email]
	if !ok || acct.password != password {
		return "", "", errBadCredentials
	}
	sessionID = uuid.NewString()
	w.sessions[sessionID] = acct.userID
	return sessionID, acct.userID, nil
}

func (w *world) sessionExists(sessionID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.sessions[sessionID]
	return ok
}

func (w *world) deleteSession(sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[sessionID]; !ok {
		return errUnknownSession
	}
	delete(w.sessions, sessionID)
	return nil
}

// directChannels returns the channels the user participates in.
func (w *world) directChannels(userID string) []model.Channel {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []model.Channel
	for _, ch := range w.channels {
		if ch.HasRecipient(userID) {
			out = append(out, *ch)
		}
	}
	return out
}

// snapshot returns the users and channels for a Ready event.
func (w *world) snapshot() ([]model.User, []model.Channel) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	users := make([]model.User, 0, len(w.users))
	for _, u := range w.users {
		users = append(users, *u)
	}
	channels := make([]model.Channel, 0, len(w.channels))
	for _, ch := range w.channels {
		channels = append(channels, *ch)
	}
	return users, channels
}

// listMessages returns up to limit of the most recent messages, newest
// first.
func (w *world) listMessages(channelID string, limit int) ([]model.Message, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.channels[channelID]; !ok {
		return nil, errUnknownChannel
	}
	history := w.messages[channelID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	out := make([]model.Message, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

func (w *world) getMessage(channelID, messageID string) (model.Message, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, msg := range w.messages[channelID] {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return model.Message{}, errUnknownMessage
}

// createMessage appends a message to a channel. A repeated nonce
// returns the originally stored message so retried sends don't
// duplicate.
func (w *world) createMessage(channelID, authorID, content, nonce string) (model.Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch, ok := w.channels[channelID]
	if !ok {
		return model.Message{}, errUnknownChannel
	}

	if nonce != "" {
		if existingID, ok := w.byNonce[nonce]; ok {
			for _, msg := range w.messages[channelID] {
				if msg.ID == existingID {
					return msg, errDuplicateNonce
				}
			}
		}
	}

	msg := model.Message{
		ID:        w.ids.Generate(),
		Nonce:     nonce,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	w.messages[channelID] = append(w.messages[channelID], msg)
	if nonce != "" {
		w.byNonce[nonce] = msg.ID
	}
	ch.LastMessageID = msg.ID
	return msg, nil
}
