package progress_test

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/tally/internal/clock/system"
	"github.com/JakeFAU/tally/internal/id/uuid"
	"github.com/JakeFAU/tally/pkg/counter"
	"github.com/JakeFAU/tally/pkg/progress"
	"github.com/JakeFAU/tally/pkg/progress/renderers"
)

var errBoom = errors.New("boom")

func openRecorded(t *testing.T, cfg progress.Config) (*progress.Monitor, *renderers.Recorder) {
	t.Helper()
	rec := renderers.NewRecorder()
	cfg.Renderer = rec
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = 20 * time.Millisecond
	}
	m, err := progress.Open(cfg)
	require.NoError(t, err)
	return m, rec
}

// TestMonitorConcurrentProducers covers 8 goroutines x 100 increments with a
// 50ms poller: the final count and display both read 800.
func TestMonitorConcurrentProducers(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{Total: 100, UpdateInterval: 50 * time.Millisecond})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(h counter.Handle) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Increment(1)
			}
		}(m.Handle())
	}
	wg.Wait()

	require.Equal(t, uint64(800), m.Value())
	require.NoError(t, m.Close())
	require.Equal(t, uint64(800), rec.Value())
	require.Zero(t, rec.Finalized())
}

// TestMonitorFastPathRendersImmediately checks Increment refreshes in-line.
func TestMonitorFastPathRendersImmediately(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{UpdateInterval: time.Second})
	defer func() { require.NoError(t, m.Close()) }()

	require.NoError(t, m.Increment(3))
	require.Equal(t, uint64(3), rec.Value())
	require.NoError(t, m.Increment(2))
	require.Equal(t, uint64(5), rec.Value())
}

// TestMonitorPollerPicksUpHandleUpdates ensures handle-only producers are
// rendered by the background poller without any explicit refresh.
func TestMonitorPollerPicksUpHandleUpdates(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{UpdateInterval: 10 * time.Millisecond})
	defer func() { require.NoError(t, m.Close()) }()

	m.Handle().Increment(42)
	require.Eventually(t, func() bool {
		return rec.Value() == 42
	}, time.Second, 5*time.Millisecond)
}

// TestMonitorCloseIsIdempotent verifies a second Close is a silent no-op.
func TestMonitorCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{})
	m.Handle().Increment(7)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, _, refreshes, finalized := rec.Counts()
	require.Equal(t, 1, finalized)
	require.Equal(t, 1, refreshes)
	require.Equal(t, uint64(7), rec.Value())
}

// TestMonitorConcurrentClose races several Close calls against each other.
func TestMonitorConcurrentClose(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Close())
		}()
	}
	wg.Wait()
	require.Zero(t, rec.Finalized())
}

// TestMonitorCloseLatencyIsBounded checks Close interrupts the poller's wait
// instead of sleeping out a full interval.
func TestMonitorCloseLatencyIsBounded(t *testing.T) {
	t.Parallel()

	m, _ := openRecorded(t, progress.Config{UpdateInterval: time.Second})
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Close())
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

// TestMonitorWritesAfterCloseAreNotRendered covers the accepted accuracy bound.
func TestMonitorWritesAfterCloseAreNotRendered(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{})
	require.NoError(t, m.Increment(10))
	require.NoError(t, m.Close())

	m.Handle().Increment(5)
	require.NoError(t, m.Increment(1))
	require.Equal(t, uint64(16), m.Value())
	require.Equal(t, uint64(10), rec.Value())
}

// TestMonitorSetResetsWithoutTouchingOtherMonitors resets one monitor's
// display to zero while a second instance keeps its count.
func TestMonitorSetResetsWithoutTouchingOtherMonitors(t *testing.T) {
	t.Parallel()

	outer, outerRec := openRecorded(t, progress.Config{Total: 100})
	inner, innerRec := openRecorded(t, progress.Config{Total: 100})

	require.NoError(t, outer.Increment(30))
	require.NoError(t, inner.Increment(50))
	require.Equal(t, uint64(50), innerRec.Value())

	require.NoError(t, inner.Set(0))
	require.Equal(t, uint64(0), inner.Value())
	require.Equal(t, uint64(0), innerRec.Value())

	require.NoError(t, outer.Close())
	require.NoError(t, inner.Close())
	require.Equal(t, uint64(30), outerRec.Value())
	require.Equal(t, uint64(0), innerRec.Value())

	_, sets, _, _ := innerRec.Counts()
	require.Equal(t, 1, sets)
}

// TestMonitorDisplayIsMonotonicUnderIncrements mixes handle and fast-path
// producers and checks the renderer never saw the count go backwards.
func TestMonitorDisplayIsMonotonicUnderIncrements(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{UpdateInterval: 10 * time.Millisecond})

	var wg sync.WaitGroup
	for g := 0; g < 6; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if g%2 == 0 {
					m.Handle().Increment(1)
					continue
				}
				require.NoError(t, m.Increment(1))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, m.Close())

	history := rec.History()
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		require.GreaterOrEqual(t, history[i], history[i-1])
	}
	require.Equal(t, uint64(1200), rec.Value())
}

// TestMonitorFastPathSurfacesRenderFailure checks the caller whose refresh
// failed receives the error, and the display recovers afterwards.
func TestMonitorFastPathSurfacesRenderFailure(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{UpdateInterval: time.Second})
	rec.FailNext(renderers.OpAdvance, errBoom)

	err := m.Increment(1)
	require.ErrorIs(t, err, progress.ErrRenderBackend)
	require.ErrorIs(t, err, errBoom)
	var renderErr *progress.RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, "advance", renderErr.Op)
	require.Equal(t, uint64(1), m.Value())

	require.NoError(t, m.Increment(1))
	require.Equal(t, uint64(2), rec.Value())
	require.NoError(t, m.Close())
	require.Equal(t, uint64(2), rec.Value())
}

// TestMonitorPollerSwallowsRenderFailure verifies a failing poller refresh is
// logged, does not stop the poller, and surfaces on the next explicit call.
func TestMonitorPollerSwallowsRenderFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	m, rec := openRecorded(t, progress.Config{
		UpdateInterval: 10 * time.Millisecond,
		Logger:         zap.New(core),
	})
	rec.FailNext(renderers.OpAdvance, errBoom)

	m.Handle().Increment(4)
	require.Eventually(t, func() bool {
		return rec.Value() == 4
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, m.Err(), errBoom)
	require.Equal(t, 1, logs.FilterMessage("progress refresh failed").Len())

	err := m.Increment(1)
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, m.Err())
	require.NoError(t, m.Increment(1))

	require.NoError(t, m.Close())
	require.Equal(t, uint64(6), rec.Value())
}

// TestMonitorCloseReportsFinalizeFailure ensures Close returns renderer
// failures once and a second Close stays quiet.
func TestMonitorCloseReportsFinalizeFailure(t *testing.T) {
	t.Parallel()

	m, rec := openRecorded(t, progress.Config{})
	rec.FailNext(renderers.OpFinalize, errBoom)

	err := m.Close()
	require.ErrorIs(t, err, progress.ErrRenderBackend)
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, m.Close())
}

// TestMonitorCloseJoinsEveryFailure reports refresh and finalize failures
// together.
func TestMonitorCloseJoinsEveryFailure(t *testing.T) {
	t.Parallel()

	errRefresh := errors.New("refresh broke")
	m, rec := openRecorded(t, progress.Config{})
	rec.FailNext(renderers.OpRefresh, errRefresh)
	rec.FailNext(renderers.OpFinalize, errBoom)

	err := m.Close()
	require.ErrorIs(t, err, errRefresh)
	require.ErrorIs(t, err, errBoom)
	var re *progress.RenderError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "refresh", re.Op)
	require.Zero(t, rec.Finalized())
}

// TestMonitorSnapshot checks snapshot fields with a manual clock.
func TestMonitorSnapshot(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clk := system.NewManual(start)
	reg := progress.NewRegistry()
	m, _ := openRecorded(t, progress.Config{
		Total:       10,
		Description: "files",
		Mode:        progress.ModeTerminal,
		Clock:       clk,
		IDs:         uuid.NewSequence("mon"),
		Registry:    reg,
	})

	require.NoError(t, m.Increment(4))
	clk.Advance(2 * time.Second)

	snap := m.Snapshot()
	require.Equal(t, "mon-1", snap.ID)
	require.Equal(t, m.ID(), snap.ID)
	require.Equal(t, "files", snap.Description)
	require.Equal(t, uint64(4), snap.Value)
	require.Equal(t, uint64(4), snap.Rendered)
	require.Equal(t, int64(10), snap.Total)
	require.Equal(t, progress.ModeTerminal, snap.Mode)
	require.Equal(t, progress.MemoryHost, snap.Memory)
	require.False(t, snap.Closed)
	require.Equal(t, start, snap.StartedAt)
	require.Equal(t, 2*time.Second, snap.Elapsed)

	require.NoError(t, m.Close())
	clk.Advance(time.Minute)
	snap, ok := reg.Get("mon-1")
	require.True(t, ok)
	require.True(t, snap.Closed)
	require.Equal(t, 2*time.Second, snap.Elapsed)

	reg.Remove("mon-1")
	require.Empty(t, reg.Snapshots())
}

// TestRegistrySnapshotsOrdered lists monitors in start order.
func TestRegistrySnapshotsOrdered(t *testing.T) {
	t.Parallel()

	clk := system.NewManual(time.Unix(0, 0))
	reg := progress.NewRegistry()
	ids := uuid.NewSequence("m")
	var monitors []*progress.Monitor
	for i := 0; i < 3; i++ {
		m, _ := openRecorded(t, progress.Config{Clock: clk, IDs: ids, Registry: reg})
		monitors = append(monitors, m)
		clk.Advance(time.Second)
	}
	for _, m := range monitors {
		require.NoError(t, m.Close())
	}

	snaps := reg.Snapshots()
	require.Len(t, snaps, 3)
	require.Equal(t, []string{"m-1", "m-2", "m-3"}, []string{snaps[0].ID, snaps[1].ID, snaps[2].ID})
}

// TestRegistryPruneClosedKeepsRecent drops the oldest closed monitors only.
func TestRegistryPruneClosedKeepsRecent(t *testing.T) {
	t.Parallel()

	clk := system.NewManual(time.Unix(0, 0))
	reg := progress.NewRegistry()
	ids := uuid.NewSequence("p")
	var monitors []*progress.Monitor
	for i := 0; i < 4; i++ {
		m, _ := openRecorded(t, progress.Config{Clock: clk, IDs: ids, Registry: reg})
		monitors = append(monitors, m)
	}
	// Close out of start order: p-3, p-1, p-2. p-4 stays running.
	for _, i := range []int{2, 0, 1} {
		clk.Advance(time.Second)
		require.NoError(t, monitors[i].Close())
	}

	require.Equal(t, 2, reg.PruneClosed(1))
	snaps := reg.Snapshots()
	require.Len(t, snaps, 2)
	require.Equal(t, []string{"p-2", "p-4"}, []string{snaps[0].ID, snaps[1].ID})
	require.Zero(t, reg.PruneClosed(1))

	require.NoError(t, monitors[3].Close())
	require.Equal(t, 1, reg.PruneClosed(1))
	_, ok := reg.Get("p-4")
	require.True(t, ok)
}

// TestOpenAutoModeUsesDetector checks ModeAuto defers to the configured detector.
func TestOpenAutoModeUsesDetector(t *testing.T) {
	t.Parallel()

	var got progress.RenderOptions
	m, err := progress.Open(progress.Config{
		Total:    5,
		Detector: func(_ io.Writer) progress.DisplayMode { return progress.ModeNotebook },
		Options:  map[string]any{"k": "v"},
		RendererFactory: func(opts progress.RenderOptions) (progress.Renderer, error) {
			got = opts
			return renderers.NewRecorder(), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.Equal(t, progress.ModeNotebook, got.Mode)
	require.Equal(t, int64(5), got.Total)
	require.True(t, got.DynamicWidth)
	require.Equal(t, m.ID(), got.MonitorID)
	require.Equal(t, "v", got.Options["k"])
	require.NotNil(t, got.Output)
}

// TestOpenRejectsInvalidConfig runs the configuration error table.
func TestOpenRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	rec := renderers.NewRecorder()
	cases := map[string]progress.Config{
		"negative interval": {Renderer: rec, UpdateInterval: -time.Second},
		"interval too fast": {Renderer: rec, UpdateInterval: time.Millisecond},
		"interval too slow": {Renderer: rec, UpdateInterval: 2 * time.Second},
		"negative total":    {Renderer: rec, Total: -1},
		"negative width":    {Renderer: rec, Width: -3},
		"unknown mode":      {Renderer: rec, Mode: "hologram"},
		"unknown memory":    {Renderer: rec, Memory: "tape"},
		"no renderer":       {},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, err := progress.Open(cfg)
			require.ErrorIs(t, err, progress.ErrConfiguration)
			require.Nil(t, m)
		})
	}
}

// TestOpenFactoryFailure wraps the factory's error.
func TestOpenFactoryFailure(t *testing.T) {
	t.Parallel()

	_, err := progress.Open(progress.Config{
		Mode: progress.ModeTerminal,
		RendererFactory: func(progress.RenderOptions) (progress.Renderer, error) {
			return nil, errBoom
		},
	})
	require.ErrorIs(t, err, errBoom)
}

// TestDoClosesOnReturnAndError checks the scoped helper closes exactly once
// and joins fn's error with Close's.
func TestDoClosesOnReturnAndError(t *testing.T) {
	t.Parallel()

	rec := renderers.NewRecorder()
	err := progress.Do(progress.Config{Renderer: rec}, func(h counter.Handle) error {
		h.Increment(9)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	require.Zero(t, rec.Finalized())
	require.Equal(t, uint64(9), rec.Value())

	rec = renderers.NewRecorder()
	rec.FailNext(renderers.OpFinalize, errors.New("finalize"))
	err = progress.Do(progress.Config{Renderer: rec}, func(counter.Handle) error { return nil })
	require.ErrorIs(t, err, progress.ErrRenderBackend)
}

// TestDoClosesOnPanic ensures a panicking body still finalizes the renderer.
func TestDoClosesOnPanic(t *testing.T) {
	t.Parallel()

	rec := renderers.NewRecorder()
	require.PanicsWithValue(t, "kaboom", func() {
		_ = progress.Do(progress.Config{Renderer: rec}, func(h counter.Handle) error {
			h.Increment(2)
			panic("kaboom")
		})
	})
	require.Zero(t, rec.Finalized())
	require.Equal(t, uint64(2), rec.Value())
}
