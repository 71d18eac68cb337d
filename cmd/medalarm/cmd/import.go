package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/med-alarm/internal/service/importer"
)

var (
	// dryRun validates without writing.
	dryRun bool

	// importCmd loads a manifest into the database.
	importCmd = &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Import medications and schedules from a YAML manifest.",
		Long: `Upserts the manifest's medications and schedules into the configured database
and deletes the schedules listed under remove.

Schedules default to the configured owner and to the dosage of their medication.
A running daemon picks the changes up on its next poll.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return importer.Run(ctx, &importer.Options{
				ConfigPath:   cfgPath,
				ManifestPath: args[0],
				DryRun:       dryRun,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the manifest without writing")

	rootCmd.AddCommand(importCmd)
}
