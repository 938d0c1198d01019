package progress

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/tally/internal/clock/system"
	"github.com/JakeFAU/tally/internal/id/uuid"
	"github.com/JakeFAU/tally/pkg/counter"
)

const errLogInterval = 5 * time.Second

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Value       uint64        `json:"value"`
	Rendered    uint64        `json:"rendered"`
	Total       int64         `json:"total,omitempty"`
	Mode        DisplayMode   `json:"mode"`
	Memory      Memory        `json:"memory"`
	Closed      bool          `json:"closed"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Monitor owns a progress counter, the poller goroutine that watches it, and
// the Renderer that displays it. Increment, Set, Value and Handle are safe
// for concurrent use; Close may be called any number of times.
type Monitor struct {
	id       string
	cfg      Config
	mode     DisplayMode
	cell     *counter.Counter
	renderer Renderer
	logger   *zap.Logger
	clock    Clock

	// mu serializes renderer access and guards the fields below it.
	mu        sync.Mutex
	last      uint64
	resync    bool
	finalized bool
	pollErr   error
	closedAt  time.Time

	startedAt  time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once
	closeErr   error
	errLimiter *rate.Limiter
	suppressed atomic.Int64
}

// Open validates cfg, allocates the counter, builds the renderer and starts
// the poller. The returned Monitor must be closed.
func Open(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	clock := cfg.Clock
	if clock == nil {
		clock = system.New()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = uuid.NewUUIDGenerator()
	}
	id, err := ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("monitor id: %w", err)
	}

	cell, err := allocate(cfg.Memory)
	if err != nil {
		return nil, err
	}

	mode, err := cfg.resolveMode()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With(zap.String("monitor_id", id))
	renderer := cfg.Renderer
	if renderer == nil {
		opts := cfg.renderOptions(id, mode)
		opts.Logger = logger
		renderer, err = cfg.RendererFactory(opts)
		if err != nil {
			return nil, fmt.Errorf("build renderer: %w", err)
		}
		if renderer == nil {
			return nil, configError("renderer factory returned nil")
		}
	}

	m := &Monitor{
		id:         id,
		cfg:        cfg,
		mode:       mode,
		cell:       cell,
		renderer:   renderer,
		logger:     logger,
		clock:      clock,
		startedAt:  clock.Now(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		errLimiter: rate.NewLimiter(rate.Every(errLogInterval), 1),
	}
	cfg.Registry.add(m)
	logger.Debug("progress monitor opened",
		zap.Int64("total", cfg.Total),
		zap.String("mode", string(mode)),
		zap.String("memory", string(cfg.Memory)),
		zap.Duration("update_interval", cfg.UpdateInterval),
	)
	go m.run()
	return m, nil
}

// ID returns the monitor's unique name.
func (m *Monitor) ID() string {
	return m.id
}

// Handle returns the producer handle for the monitor's counter. Updates made
// through it are picked up by the poller; they never touch the renderer.
func (m *Monitor) Handle() counter.Handle {
	return m.cell.Handle()
}

// Value returns the current count.
func (m *Monitor) Value() uint64 {
	return m.cell.Load()
}

// Increment adds n to the counter and refreshes the display in-line.
// Renderer failures are returned as *RenderError; the counter update is kept
// either way.
func (m *Monitor) Increment(n uint64) error {
	if m.cfg.Memory == MemoryManaged {
		return ErrHostUpdateUnsupported
	}
	m.cell.Increment(n)
	return m.refreshExplicit()
}

// Set replaces the counter value and refreshes the display in-line. It is
// meant for resetting a sub-task cursor between phases.
func (m *Monitor) Set(n uint64) error {
	if m.cfg.Memory == MemoryManaged {
		return ErrHostUpdateUnsupported
	}
	m.cell.Set(n)
	return m.refreshExplicit()
}

// Err returns the most recent renderer failure seen by the poller that has
// not yet been reported through Increment, Set or Close.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollErr
}

// Close stops the poller, waits for it to exit, flushes the final count and
// finalizes the renderer. Only the first call does any work; later calls
// return nil.
func (m *Monitor) Close() error {
	first := false
	m.closeOnce.Do(func() {
		first = true
		close(m.stopCh)
		<-m.doneCh
		m.closeErr = m.finish()
	})
	if !first {
		return nil
	}
	return m.closeErr
}

// Snapshot reports the monitor's current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	rendered := m.last
	closed := m.finalized
	end := m.closedAt
	m.mu.Unlock()
	if !closed {
		end = m.clock.Now()
	}
	return Snapshot{
		ID:          m.id,
		Description: m.cfg.Description,
		Value:       m.cell.Load(),
		Rendered:    rendered,
		Total:       m.cfg.Total,
		Mode:        m.mode,
		Memory:      m.cfg.Memory,
		Closed:      closed,
		StartedAt:   m.startedAt,
		Elapsed:     end.Sub(m.startedAt),
	}
}

func (m *Monitor) run() {
	defer close(m.doneCh)
	timer := time.NewTimer(m.cfg.UpdateInterval)
	defer timer.Stop()
	for {
		m.poll()
		select {
		case <-m.stopCh:
			return
		case <-timer.C:
			timer.Reset(m.cfg.UpdateInterval)
		}
	}
}

// poll is the poller's refresh. Failures are logged and parked in pollErr so
// a broken display never stops the poller.
func (m *Monitor) poll() {
	m.mu.Lock()
	err := m.refreshLocked()
	if err != nil {
		m.pollErr = err
	}
	m.mu.Unlock()
	if err == nil {
		return
	}
	if m.errLimiter.AllowN(m.clock.Now(), 1) {
		m.logger.Warn("progress refresh failed",
			zap.Error(err),
			zap.Int64("suppressed", m.suppressed.Swap(0)),
		)
		return
	}
	m.suppressed.Add(1)
}

// refreshExplicit is the fast-path refresh. Its own failure wins; otherwise a
// parked poller failure is surfaced once.
func (m *Monitor) refreshExplicit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.refreshLocked(); err != nil {
		return err
	}
	err := m.pollErr
	m.pollErr = nil
	return err
}

// refreshLocked forwards the counter's change since the last successful
// render. A value below the cached one means Set moved the counter back, so
// the absolute value is sent. After a failed call the next refresh resyncs
// with SetAbsolute rather than replaying a delta the renderer may have
// partially applied. Callers hold m.mu.
func (m *Monitor) refreshLocked() error {
	if m.finalized {
		return nil
	}
	value := m.cell.Load()
	switch {
	case m.resync || value < m.last:
		if err := m.renderer.SetAbsolute(value); err != nil {
			m.resync = true
			return &RenderError{Op: "set", Err: err}
		}
	case value > m.last:
		if err := m.renderer.Advance(value - m.last); err != nil {
			m.resync = true
			return &RenderError{Op: "advance", Err: err}
		}
	default:
		return nil
	}
	m.last = value
	m.resync = false
	return nil
}

func (m *Monitor) finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.refreshLocked(); err != nil {
		errs = append(errs, err)
	} else if m.pollErr != nil {
		errs = append(errs, m.pollErr)
	}
	m.pollErr = nil
	if err := m.renderer.Refresh(); err != nil {
		errs = append(errs, &RenderError{Op: "refresh", Err: err})
	}
	if err := m.renderer.Finalize(); err != nil {
		errs = append(errs, &RenderError{Op: "finalize", Err: err})
	}
	m.finalized = true
	m.closedAt = m.clock.Now()

	err := errors.Join(errs...)
	m.logger.Debug("progress monitor closed",
		zap.Uint64("value", m.last),
		zap.Duration("elapsed", m.closedAt.Sub(m.startedAt)),
		zap.Error(err),
	)
	return err
}
