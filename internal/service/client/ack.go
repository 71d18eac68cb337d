package client

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/med-alarm/internal/config"
	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/service/common"
)

// AckOptions configures the ack subcommand.
type AckOptions struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string

	// Wait bounds how long to keep retrying an unreachable daemon; zero tries once.
	Wait time.Duration
}

// defaultRetryInterval defines the delay between attempts to reach the daemon.
const defaultRetryInterval = 1 * time.Second

// acknowledger is the part of common.Client the ack loop uses.
type acknowledger interface {
	Acknowledge(ctx context.Context, actor *domain.Actor) (bool, error)
}

// Ack acknowledges the ringing alarm, retrying while the daemon is unreachable.
func Ack(ctx context.Context, opts *AckOptions) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "medalarm-ack")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the dose record.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Wait > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Wait)
		defer cancel()
	}

	acknowledged, err := acknowledge(ctx, client, actor, opts.Wait > 0)
	if err != nil {
		return err
	}

	if acknowledged {
		logger.Infof(ctx, "Alarm acknowledged by %s", actor)
	} else {
		logger.Info(ctx, "No alarm is ringing")
	}

	return nil
}

// acknowledge tries once, then on every retry tick while retry is set, until
// the daemon answers or ctx is done.
func acknowledge(ctx context.Context, client acknowledger, actor *domain.Actor, retry bool) (bool, error) {
	acknowledged, err := client.Acknowledge(ctx, actor)
	if err == nil || !retry {
		return acknowledged, err
	}

	logger.ErrorKV(ctx, "Acknowledge failed, retrying", "error", err)

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("daemon unreachable: %w", err)
		case <-ticker.C:
			acknowledged, err = client.Acknowledge(ctx, actor)
			if err == nil {
				return acknowledged, nil
			}

			logger.ErrorKV(ctx, "Acknowledge failed", "error", err)
		}
	}
}
