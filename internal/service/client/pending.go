package client

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/med-alarm/internal/config"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/service/common"
)

// PendingOptions configures the pending subcommand.
type PendingOptions struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string

	// OwnerID selects the dependent; the configured owner when empty.
	OwnerID string

	// Mark records the pending dose as taken when it is eligible.
	Mark bool

	// Out receives the caregiver line.
	Out io.Writer
}

// Pending prints the caregiver view of the next dose and optionally marks it.
func Pending(ctx context.Context, opts *PendingOptions) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "medalarm-pending")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	ownerID := opts.OwnerID
	if ownerID == "" {
		ownerID = cfg.OwnerID
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	assessment, err := client.PendingDose(ctx, ownerID)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintln(opts.Out, assessment.Describe()); err != nil {
		return err
	}

	if !opts.Mark || assessment.NothingPending {
		return nil
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	if _, err = client.MarkPendingDose(ctx, ownerID, actor); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Dose marked as taken",
		"owner_id", ownerID,
		"medication", assessment.Entry.MedicationName,
		"actor", actor.String())

	return nil
}
