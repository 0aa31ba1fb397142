package ulid_test

import (
	"strings"
	"testing"

	"github.com/nekoweb/revolt/pkg/ulid"
)

const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func TestGenerateShape(t *testing.T) {
	g := ulid.NewGenerator()
	id := g.Generate()

	if len(id) != 26 {
		t.Fatalf("ULID length = %d, want 26", len(id))
	}
	for _, r := range id {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("ULID %q contains invalid character %q", id, r)
		}
	}
}

func TestGenerateMonotonic(t *testing.T) {
	g := ulid.NewGenerator()

	prev := g.Generate()
	for i := 0; i < 10000; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("IDs not strictly increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestGenerateUniqueUnderConcurrency(t *testing.T) {
	g := ulid.NewGenerator()

	const goroutines = 4
	const perGoroutine = 1000

	results := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < perGoroutine; j++ {
				results <- g.Generate()
			}
		}()
	}

	seen := make(map[string]bool, goroutines*perGoroutine)
	for i := 0; i < goroutines*perGoroutine; i++ {
		id := <-results
		if seen[id] {
			t.Fatalf("duplicate ULID %s", id)
		}
		seen[id] = true
	}
}
