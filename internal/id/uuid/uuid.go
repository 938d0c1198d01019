// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator creates UUID v7 strings. Version 7 IDs sort by creation time,
// which keeps monitor listings stable.
type Generator struct{}

// NewUUIDGenerator creates a new Generator.
func NewUUIDGenerator() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Sequence hands out predictable IDs ("prefix-1", "prefix-2", ...). It is
// meant for tests and examples that assert on monitor IDs. The zero value
// counts from 1 with an empty prefix.
type Sequence struct {
	prefix string

	mu sync.Mutex
	n  int
}

// NewSequence returns a Sequence starting at 1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next ID in the sequence.
func (s *Sequence) NewID() (string, error) {
	s.mu.Lock()
	s.n++
	n := s.n
	s.mu.Unlock()
	return fmt.Sprintf("%s-%d", s.prefix, n), nil
}
