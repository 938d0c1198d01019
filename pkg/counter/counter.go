package counter

import "sync/atomic"

// Counter is a single atomic uint64. The zero value is ready to use and
// starts at zero. It is safe for concurrent use by any number of goroutines.
// A Counter must not be copied after first use; share it through Handle.
type Counter struct {
	v atomic.Uint64
}

// New allocates a zeroed Counter.
func New() *Counter {
	return &Counter{}
}

// Increment atomically adds delta and returns the value held before the add.
func (c *Counter) Increment(delta uint64) uint64 {
	return c.v.Add(delta) - delta
}

// Set atomically replaces the value and returns the previous one.
func (c *Counter) Set(value uint64) uint64 {
	return c.v.Swap(value)
}

// Load returns the current value. Concurrent writers may make the result
// stale by the time the caller inspects it.
func (c *Counter) Load() uint64 {
	return c.v.Load()
}

// Handle returns a value-typed reference to c.
func (c *Counter) Handle() Handle {
	return Handle{cell: c}
}
