package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/service/server"
)

var (
	// stateFile overrides the path where the alarm state is persisted.
	stateFile string

	// serveCmd runs the daemon.
	serveCmd = &cobra.Command{
		Use:   "serve [listen-address]",
		Short: "Run the medication alarm daemon.",
		Long: `Starts the daemon: alarm poller, reminder feed, notification action router,
metrics endpoint and gRPC API.

Listen address can be provided as argument to override config (e.g., 127.0.0.1:9090).
Only one daemon may run per host; a second one exits with an error.
Alarm state is persisted to a JSON file so a ringing alarm survives a restart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			return server.Run(ctx, &server.Options{
				ConfigPath:    cfgPath,
				ListenAddress: optionalArg(args),
				StateFile:     stateFile,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVarP(&stateFile, "state-file", "s", "", "path to persist alarm state")

	rootCmd.AddCommand(serveCmd)
}
