// Package uuid includes tests for the UUID generator wrapper.
package uuid

import (
	"sync"
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewID ensures generated IDs are unique version 7 UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

// TestSequenceNewID checks IDs are sequential and unique under concurrency.
func TestSequenceNewID(t *testing.T) {
	t.Parallel()

	seq := NewSequence("mon")
	first, _ := seq.NewID()
	if first != "mon-1" {
		t.Fatalf("first id = %q, want mon-1", first)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]struct{}{first: {}}
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := seq.NewID()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 33 {
		t.Fatalf("expected 33 unique ids, got %d", len(seen))
	}
}

// TestSequenceZeroValue checks a zero Sequence is usable.
func TestSequenceZeroValue(t *testing.T) {
	t.Parallel()

	var seq Sequence
	for _, want := range []string{"-1", "-2"} {
		got, err := seq.NewID()
		if err != nil {
			t.Fatalf("NewID() error = %v", err)
		}
		if got != want {
			t.Fatalf("id = %q, want %q", got, want)
		}
	}
}
