// Package app initializes and holds long-lived CLI services, acting as a
// dependency injection container for commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/tally/internal/api"
	"github.com/JakeFAU/tally/internal/config"
	"github.com/JakeFAU/tally/internal/metrics"
	"github.com/JakeFAU/tally/pkg/progress"
	"github.com/JakeFAU/tally/pkg/progress/renderers"
)

// App holds the shared services for one CLI invocation: the logger, the
// monitor registry the status server reads, and the Prometheus collectors
// every monitor exports into.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	output     io.Writer
	registry   *progress.Registry
	collectors *renderers.PrometheusCollectors
	server     *api.Server
}

// New builds an App. out receives progress displays and defaults to
// os.Stdout; a nil logger disables logging.
func New(cfg config.Config, logger *zap.Logger, out io.Writer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	metrics.Init()
	collectors, err := renderers.NewPrometheusCollectors(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("progress collectors: %w", err)
	}
	registry := progress.NewRegistry()
	logger.Debug("application services initialized",
		zap.String("server_addr", cfg.Server.Addr),
		zap.Int("workers", cfg.Workload.Workers),
	)
	return &App{
		cfg:        cfg,
		logger:     logger,
		output:     out,
		registry:   registry,
		collectors: collectors,
		server:     api.NewServer(registry, logger),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry returns the registry every monitor opened through the App joins.
func (a *App) Registry() *progress.Registry {
	return a.registry
}

// MonitorConfig returns the configured progress.Config for one monitor, with
// description and total overridden when set, wired to the App's output,
// logger, registry and renderer factory.
func (a *App) MonitorConfig(description string, total int64) (progress.Config, error) {
	cfg, err := a.cfg.MonitorConfig()
	if err != nil {
		return progress.Config{}, err
	}
	if description != "" {
		cfg.Description = description
	}
	if total > 0 {
		cfg.Total = total
	}
	cfg.Output = a.output
	cfg.Logger = a.logger
	cfg.Registry = a.registry
	cfg.RendererFactory = renderers.NewFactory(renderers.FactoryConfig{
		Metrics: a.collectors,
		Log:     a.cfg.Monitor.LogProgress,
		Quiet:   a.cfg.Monitor.Quiet,
	})
	return cfg, nil
}

// keepClosed bounds how many closed monitors the status API keeps listing.
const keepClosed = 100

// Track opens a monitor from MonitorConfig, runs fn with it and closes it,
// keeping the open-monitor gauge current. Once closed, the oldest monitors
// beyond keepClosed are dropped from the registry.
func (a *App) Track(description string, total int64, fn func(*progress.Monitor) error) error {
	cfg, err := a.MonitorConfig(description, total)
	if err != nil {
		return err
	}
	m, err := progress.Open(cfg)
	if err != nil {
		return fmt.Errorf("open monitor %q: %w", description, err)
	}
	metrics.MonitorOpened()
	defer func() {
		metrics.MonitorClosed()
		a.registry.PruneClosed(keepClosed)
	}()
	return m.Scope(fn)
}

// Run executes fn, serving the status API alongside it when an address is
// configured. The server is stopped once fn returns.
func (a *App) Run(ctx context.Context, fn func(context.Context) error) error {
	if a.cfg.Server.Addr == "" {
		return fn(ctx)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Serve(gctx, a.cfg.Server.Addr)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}

// Close flushes the logger. It is called by a Cobra hook after the command
// finishes.
func (a *App) Close() {
	// Sync fails on console file descriptors; nothing useful can be done then.
	_ = a.logger.Sync()
}
