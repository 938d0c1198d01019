package counter

// Handle is the producer-side view of a Counter. It is a single pointer wide
// and is meant to be passed by value: every copy observes the same cell.
//
// The zero Handle is valid; its mutators are no-ops and Value reports 0, which
// lets callers pass an empty Handle to code that reports progress optionally.
type Handle struct {
	cell *Counter
}

// Valid reports whether h refers to a Counter.
func (h Handle) Valid() bool {
	return h.cell != nil
}

// Increment adds n and returns the previous value.
func (h Handle) Increment(n uint64) uint64 {
	if h.cell == nil {
		return 0
	}
	return h.cell.Increment(n)
}

// Add adds n. It exists so a Handle method value can be used as a plain
// func(uint64) callback.
func (h Handle) Add(n uint64) {
	h.Increment(n)
}

// Set replaces the value with n and returns the previous value.
func (h Handle) Set(n uint64) uint64 {
	if h.cell == nil {
		return 0
	}
	return h.cell.Set(n)
}

// Value returns the current count.
func (h Handle) Value() uint64 {
	if h.cell == nil {
		return 0
	}
	return h.cell.Load()
}

// Same reports whether h and other refer to the same Counter.
func (h Handle) Same(other Handle) bool {
	return h.cell == other.cell
}
