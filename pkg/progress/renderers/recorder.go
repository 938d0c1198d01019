package renderers

import (
	"sync"
)

// Recorder is an in-memory Renderer that remembers what it was told to show.
// It is safe for concurrent inspection while a Monitor drives it, and can be
// armed to fail specific calls.
type Recorder struct {
	mu        sync.Mutex
	value     uint64
	history   []uint64
	advances  int
	sets      int
	refreshes int
	finalized int
	failures  map[string][]error
}

// Recorder operation names accepted by FailNext.
const (
	OpAdvance  = "advance"
	OpSet      = "set"
	OpRefresh  = "refresh"
	OpFinalize = "finalize"
)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[string][]error)}
}

// FailNext makes the next call to op return err instead of taking effect.
// Calls queue up: arming the same op twice fails it twice.
func (r *Recorder) FailNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = append(r.failures[op], err)
}

func (r *Recorder) popFailure(op string) error {
	queue := r.failures[op]
	if len(queue) == 0 {
		return nil
	}
	r.failures[op] = queue[1:]
	return queue[0]
}

// Advance implements progress.Renderer.
func (r *Recorder) Advance(delta uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(OpAdvance); err != nil {
		return err
	}
	r.advances++
	r.value += delta
	r.history = append(r.history, r.value)
	return nil
}

// SetAbsolute implements progress.Renderer.
func (r *Recorder) SetAbsolute(value uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(OpSet); err != nil {
		return err
	}
	r.sets++
	r.value = value
	r.history = append(r.history, r.value)
	return nil
}

// Refresh implements progress.Renderer.
func (r *Recorder) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(OpRefresh); err != nil {
		return err
	}
	r.refreshes++
	return nil
}

// Finalize implements progress.Renderer.
func (r *Recorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(OpFinalize); err != nil {
		return err
	}
	r.finalized++
	return nil
}

// Value is the last displayed count.
func (r *Recorder) Value() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// History lists every displayed count in order.
func (r *Recorder) History() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.history...)
}

// Counts reports how many successful calls of each kind were made.
func (r *Recorder) Counts() (advances, sets, refreshes, finalized int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advances, r.sets, r.refreshes, r.finalized
}

// Finalized reports how many times Finalize succeeded.
func (r *Recorder) Finalized() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}
