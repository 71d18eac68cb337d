package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/service/checker"
)

var (
	// watch follows state transitions.
	watch bool

	// statusCmd prints the alarm state.
	statusCmd = &cobra.Command{
		Use:   "status [server-address]",
		Short: "Show the alarm state of the running daemon.",
		Long: `Prints the current alarm phase, the ringing medication and who acknowledged last.

With --watch, prints a line on every transition until interrupted and reconnects
when the daemon restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    cfgPath,
				ServerAddress: optionalArg(args),
				Watch:         watch,
				Out:           cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow state transitions")

	rootCmd.AddCommand(statusCmd)
}
