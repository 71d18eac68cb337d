package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/config"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command of the medication alarm.
	rootCmd = &cobra.Command{
		Use:   "medalarm",
		Short: "Medication alarm daemon and its clients.",
		Long: `Rings an alarm when a scheduled medication dose is due and records who took it.

The serve subcommand runs the daemon: it checks the schedule every poll interval,
loops the alarm sound and vibration until the dose is acknowledged, and keeps an
iCalendar reminder feed as a fallback for when the daemon is not running.
The other subcommands talk to a running daemon over gRPC, except import which
writes medications and schedules to the database directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if logLevel == "" {
				return nil
			}

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the medalarm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// optionalArg returns the first argument or "".
func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return ""
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")
}
