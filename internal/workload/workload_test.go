package workload

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tally/pkg/counter"
)

func TestRunIncrementsOncePerTask(t *testing.T) {
	t.Parallel()

	c := counter.New()
	res, err := Run(context.Background(), Config{Name: "sum", Workers: 8, Tasks: 800}, c.Handle(), Sleep(0))
	require.NoError(t, err)
	require.Equal(t, Result{Completed: 800}, res)
	require.Equal(t, uint64(800), c.Load())
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int64
	task := func(context.Context, int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return nil
	}
	c := counter.New()
	_, err := Run(context.Background(), Config{Workers: 3, Tasks: 30}, c.Handle(), task)
	require.NoError(t, err)
	require.LessOrEqual(t, peak.Load(), int64(3))
	require.Equal(t, uint64(30), c.Load())
}

func TestRunCountsFailures(t *testing.T) {
	t.Parallel()

	errOdd := errors.New("odd")
	task := func(_ context.Context, i int) error {
		if i%2 == 1 {
			return errOdd
		}
		return nil
	}
	c := counter.New()
	res, err := Run(context.Background(), Config{Workers: 4, Tasks: 10}, c.Handle(), task)
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Completed)
	require.Equal(t, int64(5), res.Failed)
	require.Equal(t, uint64(5), c.Load())
}

func TestRunStopOnError(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("first")
	task := func(_ context.Context, i int) error {
		if i == 0 {
			return errFirst
		}
		return nil
	}
	_, err := Run(context.Background(), Config{Workers: 1, Tasks: 5, StopOnError: true}, counter.New().Handle(), task)
	require.ErrorIs(t, err, errFirst)
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Config{}, counter.Handle{}, Sleep(0))
	require.Error(t, err)
	_, err = Run(context.Background(), Config{Workers: 1}, counter.Handle{}, nil)
	require.Error(t, err)
}

func TestSleepHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.ErrorIs(t, Sleep(time.Minute)(ctx, 0), context.Canceled)
	require.Less(t, time.Since(start), time.Second)
	require.NoError(t, Sleep(time.Millisecond)(context.Background(), 0))
}

type fakeStepper struct {
	value uint64
	log   []uint64
}

func (f *fakeStepper) Increment(n uint64) error {
	f.value += n
	f.log = append(f.log, f.value)
	return nil
}

func (f *fakeStepper) Set(n uint64) error {
	f.value = n
	f.log = append(f.log, f.value)
	return nil
}

func TestNestedResetsInnerEachPass(t *testing.T) {
	t.Parallel()

	outer, inner := &fakeStepper{}, &fakeStepper{}
	require.NoError(t, Nested(context.Background(), outer, inner, 3, 2, Sleep(0)))
	require.Equal(t, uint64(3), outer.value)
	require.Equal(t, uint64(2), inner.value)
	require.Equal(t, []uint64{0, 1, 2, 0, 1, 2, 0, 1, 2}, inner.log)
}

func TestNestedStopsOnTaskError(t *testing.T) {
	t.Parallel()

	errStep := errors.New("step")
	outer, inner := &fakeStepper{}, &fakeStepper{}
	task := func(_ context.Context, i int) error {
		if i == 3 {
			return errStep
		}
		return nil
	}
	err := Nested(context.Background(), outer, inner, 3, 2, task)
	require.ErrorIs(t, err, errStep)
	require.Equal(t, uint64(1), outer.value)
}
