package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/service/client"
)

var (
	// ackWait bounds retries against an unreachable daemon.
	ackWait time.Duration

	// ackCmd acknowledges the ringing alarm.
	ackCmd = &cobra.Command{
		Use:   "ack [server-address]",
		Short: "Acknowledge the ringing alarm and record the dose as taken.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return client.Ack(ctx, &client.AckOptions{
				ConfigPath:    cfgPath,
				ServerAddress: optionalArg(args),
				Wait:          ackWait,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	ackCmd.Flags().DurationVarP(&ackWait, "wait", "w", 0, "keep retrying an unreachable daemon for this long")

	rootCmd.AddCommand(ackCmd)
}
