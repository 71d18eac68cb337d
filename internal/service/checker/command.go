// Package checker implements the status subcommand: it reports the daemon's
// alarm state once, or follows every transition with --watch.
package checker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/med-alarm/internal/config"
	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/service/common"
)

// Options controls the status output and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC daemon address override.
	ServerAddress string
	// Watch follows state transitions until canceled.
	Watch bool
	// ReconnectInterval defines the delay before re-opening a broken watch stream.
	ReconnectInterval time.Duration
	// Out receives one line per state.
	Out io.Writer
}

// DefaultReconnectInterval defines the delay before re-opening a watch stream.
const DefaultReconnectInterval = 5 * time.Second

// watcher is the part of common.Client the status loop uses.
type watcher interface {
	GetAlarmState(ctx context.Context) (*common.Status, error)
	WatchAlarmState(ctx context.Context, fn func(*common.Status)) error
}

// Run prints the alarm state, following transitions when Watch is set.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "medalarm-status")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}

	// Determine daemon address: command line argument overrides config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	if !opts.Watch {
		status, err := client.GetAlarmState(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(opts.Out, FormatStatus(status))

		return err
	}

	logger.InfoKV(ctx, "Watching alarm state", "server_address", serverAddress)

	return watch(ctx, client, opts)
}

// watch streams states and re-opens the stream after failures until ctx is done.
func watch(ctx context.Context, client watcher, opts *Options) error {
	printStatus := func(status *common.Status) {
		_, _ = fmt.Fprintln(opts.Out, FormatStatus(status))
	}

	ticker := time.NewTicker(opts.ReconnectInterval)
	defer ticker.Stop()

	// Main watch loop until context cancellation.
	for {
		if err := client.WatchAlarmState(ctx, printStatus); err != nil {
			logger.ErrorKV(ctx, "Watch stream failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
		}
	}
}

// FormatStatus renders a state as one human-readable line.
func FormatStatus(status *common.Status) string {
	if status == nil || status.State == nil {
		return "<nil state>"
	}

	state := status.State

	line := string(state.Phase)
	if state.Phase == "" {
		line = string(domain.PhaseIdle)
	}

	if state.Current != nil {
		line += fmt.Sprintf(": %s %s scheduled %s",
			state.Current.MedicationName, state.Current.Dosage, state.Scheduled.Local().Format("15:04"))
	}

	if !state.Since.IsZero() {
		line += " since " + state.Since.Local().Format(time.RFC3339)
	}

	if state.LastActor != nil {
		line += ", last acknowledged by " + state.LastActor.String()
	}

	if !status.FallbackAvailable {
		line += " (platform reminders unavailable)"
	}

	return line
}
