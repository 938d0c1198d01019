// Package cmd defines and implements the CLI commands for the tally
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/tally/internal/app"
	"github.com/JakeFAU/tally/internal/config"
	"github.com/JakeFAU/tally/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap the
// logger or output.
var newApp = func(cfg config.Config, out io.Writer) (*app.App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger, out)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Concurrent progress counters with live terminal and notebook rendering.",
		Long: `tally drives synthetic workloads through a progress monitor: many goroutines
increment one shared counter while a background poller keeps a terminal bar,
notebook-style log lines, structured logs and Prometheus gauges up to date.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs before the subcommand's RunE: load config, then build and
		// inject the App.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bindFlags(v, cmd.Flags().Lookup)
			cfg, err := config.LoadWith(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML); TALLY_* environment variables also apply")
	flags.String("metrics-addr", "", "serve /healthz, /metrics and /v1/monitors on this address")
	flags.String("mode", "auto", "display mode: auto, terminal or notebook")
	flags.Duration("interval", 0, "poller refresh interval (10ms-1s, default 100ms)")
	flags.Bool("quiet", false, "disable the terminal/notebook display")
	flags.Bool("log-progress", false, "log every count change")
	flags.String("log-level", "", "minimum log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newNestedCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func logFinished(logger *zap.Logger, command string, err error) {
	if err != nil {
		logger.Warn("command failed", zap.String("command", command), zap.Error(err))
		return
	}
	logger.Info("command finished", zap.String("command", command))
}
