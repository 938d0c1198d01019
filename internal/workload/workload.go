// Package workload runs synthetic producers against a progress counter. It is
// what the CLI drives to exercise a Monitor under real contention.
package workload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/tally/internal/metrics"
	"github.com/JakeFAU/tally/pkg/counter"
)

// Task is one unit of work. i is the task index in [0, Config.Tasks).
type Task func(ctx context.Context, i int) error

// Config sizes a Run.
type Config struct {
	// Name labels metrics and log entries.
	Name    string
	Workers int
	Tasks   int
	// StopOnError cancels the remaining tasks after the first failure.
	StopOnError bool
	Logger      *zap.Logger
}

// Result summarizes a Run.
type Result struct {
	Completed int64
	Failed    int64
}

// Run executes cfg.Tasks invocations of task on an ants pool of cfg.Workers
// goroutines and increments h once per successful task. Failed tasks are
// counted and logged; with StopOnError the first failure is returned and the
// remaining tasks are skipped.
func Run(ctx context.Context, cfg Config, h counter.Handle, task Task) (Result, error) {
	if cfg.Workers <= 0 {
		return Result{}, fmt.Errorf("workers must be > 0, got %d", cfg.Workers)
	}
	if task == nil {
		return Result{}, errors.New("task is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return Result{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	g, ctx := errgroup.WithContext(ctx)
	var completed, failed atomic.Int64

	for i := 0; i < cfg.Tasks; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errCh := make(chan error, 1)
			if err := pool.Submit(func() {
				metrics.IncActiveWorkers()
				defer metrics.DecActiveWorkers()
				start := time.Now()
				err := task(ctx, i)
				metrics.ObserveTask(cfg.Name, err, time.Since(start))
				errCh <- err
			}); err != nil {
				return fmt.Errorf("submit task: %w", err)
			}
			if err := <-errCh; err != nil {
				failed.Add(1)
				if cfg.StopOnError {
					return fmt.Errorf("task %d: %w", i, err)
				}
				logger.Warn("task failed", zap.String("workload", cfg.Name), zap.Int("task", i), zap.Error(err))
				return nil
			}
			h.Increment(1)
			completed.Add(1)
			return nil
		})
	}

	err = g.Wait()
	res := Result{Completed: completed.Load(), Failed: failed.Load()}
	logger.Debug("workload finished",
		zap.String("workload", cfg.Name),
		zap.Int64("completed", res.Completed),
		zap.Int64("failed", res.Failed),
	)
	return res, err
}

// Sleep returns a Task that waits d, or until ctx is done.
func Sleep(d time.Duration) Task {
	return func(ctx context.Context, _ int) error {
		if d <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// Stepper is the explicit-update surface of a progress monitor.
type Stepper interface {
	Increment(n uint64) error
	Set(n uint64) error
}

// Nested runs outer passes of inner sequential steps. The inner stepper is
// reset to zero at the start of every pass and the outer one advances once
// per completed pass.
func Nested(ctx context.Context, outer, inner Stepper, outerN, innerN int, task Task) error {
	for i := 0; i < outerN; i++ {
		if err := inner.Set(0); err != nil {
			return fmt.Errorf("reset inner: %w", err)
		}
		for j := 0; j < innerN; j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx, i*innerN+j); err != nil {
				return fmt.Errorf("pass %d step %d: %w", i, j, err)
			}
			if err := inner.Increment(1); err != nil {
				return fmt.Errorf("advance inner: %w", err)
			}
		}
		if err := outer.Increment(1); err != nil {
			return fmt.Errorf("advance outer: %w", err)
		}
	}
	return nil
}
