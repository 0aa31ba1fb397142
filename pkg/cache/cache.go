// Package cache holds the process-local store of the latest known
// entity state, keyed by identifier. It is the only object mutated by
// more than one goroutine: REST completions and the realtime decode
// loop both write into it, UI-facing callers read from it.
package cache

import (
	"errors"
	"sync"

	"github.com/nekoweb/revolt/pkg/model"
)

var (
	// ErrNotFound means no entity exists under the requested ID.
	ErrNotFound = errors.New("cache: entity not found")

	// ErrKindMismatch means an entity exists under the ID but is not of
	// the kind the caller asked for. This is a caller-detectable
	// condition, not a crash.
	ErrKindMismatch = errors.New("cache: entity kind mismatch")
)

// Store is a heterogeneous entity cache. Mutations are serialized;
// reads run concurrently. Put is a wholesale last-write-wins replace of
// the keyed entry; partial payloads must go through Update so the merge
// happens atomically and fields the payload omitted survive.
type Store struct {
	mu      sync.RWMutex
	entries map[string]model.Entity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]model.Entity)}
}

// Put inserts or replaces the entry keyed by the entity's ID. Entities
// without an ID (client-side drafts) are ignored.
func (s *Store) Put(e model.Entity) {
	id := e.EntityID()
	if id == "" {
		return
	}
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
}

// Get returns the entity stored under id, if any.
func (s *Store) Get(id string) (model.Entity, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	return e, ok
}

// Delete removes the entry for id. Removing an absent key is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len returns the number of cached entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Update applies fn to the entity stored under id while holding the
// write lock, storing whatever fn returns. fn receives nil when the key
// is absent; returning nil leaves the store unchanged. This is the
// merge path for partial server payloads.
func (s *Store) Update(id string, fn func(model.Entity) model.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := fn(s.entries[id])
	if updated == nil {
		return
	}
	s.entries[id] = updated
}

// FindWhere returns every cached entity matching the predicate. The
// predicate runs under the read lock and must not call back into the
// store.
func (s *Store) FindWhere(pred func(model.Entity) bool) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Entity
	for _, e := range s.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Channel returns the channel stored under id.
func (s *Store) Channel(id string) (*model.Channel, error) {
	e, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := e.(*model.Channel)
	if !ok {
		return nil, ErrKindMismatch
	}
	return c, nil
}

// User returns the user stored under id.
func (s *Store) User(id string) (*model.User, error) {
	e, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	u, ok := e.(*model.User)
	if !ok {
		return nil, ErrKindMismatch
	}
	return u, nil
}

// Message returns the message stored under id.
func (s *Store) Message(id string) (*model.Message, error) {
	e, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	m, ok := e.(*model.Message)
	if !ok {
		return nil, ErrKindMismatch
	}
	return m, nil
}
