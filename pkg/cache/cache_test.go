package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nekoweb/revolt/pkg/cache"
	"github.com/nekoweb/revolt/pkg/model"
)

func TestPutGetReadYourWrite(t *testing.T) {
	store := cache.NewStore()
	user := &model.User{ID: "u1", Username: "alice"}

	store.Put(user)

	got, ok := store.Get("u1")
	if !ok {
		t.Fatal("entity not found after Put")
	}
	if got != model.Entity(user) {
		t.Fatalf("Get returned a different entity: %#v", got)
	}
}

func TestPutOverwritesLastWriteWins(t *testing.T) {
	store := cache.NewStore()
	store.Put(&model.Message{ID: "m1", Content: "first"})
	store.Put(&model.Message{ID: "m1", Content: "second"})

	msg, err := store.Message("m1")
	if err != nil {
		t.Fatalf("Message err: %v", err)
	}
	if msg.Content != "second" {
		t.Fatalf("expected last write to win, got %q", msg.Content)
	}
	if store.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", store.Len())
	}
}

func TestPutIgnoresDrafts(t *testing.T) {
	store := cache.NewStore()
	store.Put(&model.Message{Content: "no id yet"})
	if store.Len() != 0 {
		t.Fatalf("draft without ID must not be cached, len = %d", store.Len())
	}
}

func TestConcurrentPutsDistinctKeys(t *testing.T) {
	store := cache.NewStore()

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("u%d-%d", w, i)
				store.Put(&model.User{ID: id, Username: id})
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != writers*perWriter {
		t.Fatalf("lost writes: len = %d, want %d", store.Len(), writers*perWriter)
	}
	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			id := fmt.Sprintf("u%d-%d", w, i)
			if _, ok := store.Get(id); !ok {
				t.Fatalf("missing entry %s", id)
			}
		}
	}
}

func TestTypedReadKindMismatch(t *testing.T) {
	store := cache.NewStore()
	store.Put(&model.User{ID: "x1", Username: "alice"})

	if _, err := store.Channel("x1"); !errors.Is(err, cache.ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if _, err := store.Channel("absent"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.User("x1"); err != nil {
		t.Fatalf("typed read of correct kind failed: %v", err)
	}
}

func TestFindWhereDirectConversationWithUser(t *testing.T) {
	store := cache.NewStore()
	store.Put(&model.Channel{ID: "c1", Type: "DirectMessage", Recipients: []string{"me", "alice"}})
	store.Put(&model.Channel{ID: "c2", Type: "DirectMessage", Recipients: []string{"me", "bob"}})
	store.Put(&model.Channel{ID: "c3", Type: "Group", Recipients: []string{"me", "alice", "bob"}})
	store.Put(&model.User{ID: "alice", Username: "alice"})

	found := store.FindWhere(func(e model.Entity) bool {
		ch, ok := e.(*model.Channel)
		return ok && ch.Kind() == model.ChannelDirect && ch.HasRecipient("alice")
	})

	if len(found) != 1 {
		t.Fatalf("expected one match, got %d", len(found))
	}
	if found[0].EntityID() != "c1" {
		t.Fatalf("expected c1, got %s", found[0].EntityID())
	}
}

func TestUpdateMergePreservesOmittedFields(t *testing.T) {
	store := cache.NewStore()
	store.Put(&model.Message{ID: "m1", ChannelID: "c1", AuthorID: "u1", Content: "original"})

	// A partial edit payload carries only the new content; the merge
	// must not null out the fields it omitted.
	store.Update("m1", func(e model.Entity) model.Entity {
		msg, ok := e.(*model.Message)
		if !ok {
			return nil
		}
		updated := *msg
		updated.Content = "edited"
		return &updated
	})

	msg, err := store.Message("m1")
	if err != nil {
		t.Fatalf("Message err: %v", err)
	}
	if msg.Content != "edited" {
		t.Fatalf("content not updated: %q", msg.Content)
	}
	if msg.AuthorID != "u1" || msg.ChannelID != "c1" {
		t.Fatalf("omitted fields were lost: %+v", msg)
	}
}

func TestUpdateAbsentKeyNoop(t *testing.T) {
	store := cache.NewStore()
	store.Update("missing", func(e model.Entity) model.Entity {
		if e != nil {
			t.Fatalf("expected nil entity for absent key, got %#v", e)
		}
		return nil
	})
	if store.Len() != 0 {
		t.Fatalf("nil return must leave the store unchanged, len = %d", store.Len())
	}
}
