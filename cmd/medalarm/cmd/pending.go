package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/service/client"
)

var (
	// ownerID selects the dependent.
	ownerID string
	// mark records the pending dose.
	mark bool

	// pendingCmd shows the caregiver view.
	pendingCmd = &cobra.Command{
		Use:   "pending [server-address]",
		Short: "Show the next pending dose and optionally mark it as taken.",
		Long: `Shows today's next dose that has not been recorded yet.

A dose can be marked as taken from 5 minutes before until 30 minutes after its
scheduled time; outside that window the time remaining is shown instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return client.Pending(ctx, &client.PendingOptions{
				ConfigPath:    cfgPath,
				ServerAddress: optionalArg(args),
				OwnerID:       ownerID,
				Mark:          mark,
				Out:           cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pendingCmd.Flags().StringVarP(&ownerID, "owner", "o", "", "dependent owner id (default: owner_id from config)")
	pendingCmd.Flags().BoolVarP(&mark, "mark", "m", false, "mark the pending dose as taken when eligible")

	rootCmd.AddCommand(pendingCmd)
}
