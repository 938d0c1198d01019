package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/tally/internal/workload"
	"github.com/JakeFAU/tally/pkg/progress"
)

// newRunCmd creates the 'run' subcommand: a parallel workload whose tasks all
// increment one shared counter.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a parallel workload under one progress monitor",
		Long: `Submits --tasks sleeping tasks to a pool of --workers goroutines. Every
finished task increments the same counter through its handle; the monitor's
poller renders the running total.`,
		Args: cobra.NoArgs,
		RunE: runRunCommand,
	}
	flags := cmd.Flags()
	flags.Int("workers", 8, "worker pool size")
	flags.Int("tasks", 800, "number of tasks")
	flags.Duration("delay", 0, "simulated work per task (default 2ms)")
	flags.Bool("stop-on-error", false, "stop at the first failed task")
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	stopOnError, err := cmd.Flags().GetBool("stop-on-error")
	if err != nil {
		return fmt.Errorf("read stop-on-error: %w", err)
	}
	wcfg := workload.Config{
		Name:        "run",
		Workers:     cfg.Workload.Workers,
		Tasks:       cfg.Workload.Tasks,
		StopOnError: stopOnError,
		Logger:      appInstance.Logger(),
	}

	var res workload.Result
	err = appInstance.Run(cmd.Context(), func(ctx context.Context) error {
		return appInstance.Track("tasks", int64(cfg.Workload.Tasks), func(m *progress.Monitor) error {
			var runErr error
			res, runErr = workload.Run(ctx, wcfg, m.Handle(), workload.Sleep(cfg.Workload.Delay))
			return runErr
		})
	})
	appInstance.Logger().Info("workload summary",
		zap.Int64("completed", res.Completed),
		zap.Int64("failed", res.Failed),
	)
	logFinished(appInstance.Logger(), "run", err)
	return err
}
