package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/tally/internal/workload"
	"github.com/JakeFAU/tally/pkg/progress"
)

// newNestedCmd creates the 'nested' subcommand: an outer monitor over passes
// and an inner monitor over the steps of the current pass, reset with Set(0)
// at the start of every pass.
func newNestedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nested",
		Short: "Run nested loops with an outer and a resettable inner monitor",
		Args:  cobra.NoArgs,
		RunE:  runNestedCommand,
	}
	flags := cmd.Flags()
	flags.Int("outer", 5, "number of outer passes")
	flags.Int("inner", 50, "steps per pass")
	flags.Duration("delay", 0, "simulated work per step (default 2ms)")
	return cmd
}

func runNestedCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config().Workload

	err = appInstance.Run(cmd.Context(), func(ctx context.Context) error {
		return appInstance.Track("outer", int64(cfg.Outer), func(outer *progress.Monitor) error {
			return appInstance.Track("inner", int64(cfg.Inner), func(inner *progress.Monitor) error {
				return workload.Nested(ctx, outer, inner, cfg.Outer, cfg.Inner, workload.Sleep(cfg.Delay))
			})
		})
	})
	logFinished(appInstance.Logger(), "nested", err)
	return err
}
