package progress

import (
	"sort"
	"sync"
)

// Registry tracks monitors so their state can be inspected out of band, for
// example by an HTTP status endpoint. Closed monitors stay listed with
// Snapshot.Closed set until Remove is called.
type Registry struct {
	mu       sync.RWMutex
	monitors map[string]*Monitor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{monitors: make(map[string]*Monitor)}
}

func (r *Registry) add(m *Monitor) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monitors[m.id] = m
}

// Remove forgets the monitor with the given id.
func (r *Registry) Remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.monitors, id)
}

// Get returns the snapshot for id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	if r == nil {
		return Snapshot{}, false
	}
	r.mu.RLock()
	m, ok := r.monitors[id]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return m.Snapshot(), true
}

// Snapshots returns every registered monitor's state ordered by start time.
func (r *Registry) Snapshots() []Snapshot {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]Snapshot, 0, len(r.monitors))
	for _, m := range r.monitors {
		out = append(out, m.Snapshot())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// PruneClosed forgets all but the keep most recently closed monitors and
// reports how many were removed. Running monitors are never removed.
func (r *Registry) PruneClosed(keep int) int {
	if r == nil {
		return 0
	}
	if keep < 0 {
		keep = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := make([]Snapshot, 0, len(r.monitors))
	for _, m := range r.monitors {
		if s := m.Snapshot(); s.Closed {
			closed = append(closed, s)
		}
	}
	if len(closed) <= keep {
		return 0
	}
	sort.Slice(closed, func(i, j int) bool {
		ei := closed[i].StartedAt.Add(closed[i].Elapsed)
		ej := closed[j].StartedAt.Add(closed[j].Elapsed)
		if ei.Equal(ej) {
			return closed[i].ID < closed[j].ID
		}
		return ei.Before(ej)
	})
	drop := closed[:len(closed)-keep]
	for _, s := range drop {
		delete(r.monitors, s.ID)
	}
	return len(drop)
}
