package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/med-alarm/internal/config"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// Options contains inputs for the import entry point.
type Options struct {
	// ConfigPath is the settings file naming the database and default owner.
	ConfigPath string
	// ManifestPath is the YAML manifest to import.
	ManifestPath string
	// DryRun validates the manifest without writing.
	DryRun bool
}

// Manifest is the YAML document accepted by the import subcommand.
type Manifest struct {
	// Medications are upserted into the catalog first.
	Medications []*storage.Medication `yaml:"medications"`
	// Schedules are upserted after the catalog.
	Schedules []*ImportedEntry `yaml:"schedules"`
	// Remove lists schedule ids to delete.
	Remove []string `yaml:"remove"`
}

// ImportedEntry is a schedule entry whose "active" key defaults to true.
type ImportedEntry struct {
	schedule.Entry
}

// UnmarshalYAML decodes the entry and applies the active default.
func (e *ImportedEntry) UnmarshalYAML(node *yaml.Node) error {
	var presence struct {
		Active *bool `yaml:"active"`
	}

	if err := node.Decode(&presence); err != nil {
		return err
	}

	if err := node.Decode(&e.Entry); err != nil {
		return err
	}

	if presence.Active == nil {
		e.Active = true
	}

	return nil
}

// writer is the part of storage.Store the importer writes through.
type writer interface {
	UpsertMedication(ctx context.Context, medication *storage.Medication) error
	UpsertSchedule(ctx context.Context, entry *schedule.Entry) error
	DeleteSchedule(ctx context.Context, id string) error
}

// Result counts what an import wrote.
type Result struct {
	Medications int
	Schedules   int
	Removed     int
}

var (
	// errDuplicateSchedule is returned when a manifest lists a schedule id twice.
	errDuplicateSchedule = errors.New("duplicate schedule id")
	// errUnknownMedication is returned when a schedule names no known medication.
	errUnknownMedication = errors.New("medication is not in the manifest")
	// errMedicationID is returned for a catalog record without id.
	errMedicationID = errors.New("medication id must be provided")
)

// Run loads the manifest and writes it to the configured store.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "medalarm-import")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	manifest, err := Load(opts.ManifestPath)
	if err != nil {
		return err
	}

	if err = manifest.Prepare(settings.OwnerID); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	if opts.DryRun {
		logger.InfoKV(ctx, "Manifest is valid",
			"medications", len(manifest.Medications),
			"schedules", len(manifest.Schedules),
			"remove", len(manifest.Remove))

		return nil
	}

	store, err := storage.Open(ctx, settings.Database.Driver, settings.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() {
		_ = store.Close()
	}()

	result, err := manifest.Apply(ctx, store)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Manifest imported",
		"medications", result.Medications,
		"schedules", result.Schedules,
		"removed", result.Removed)

	return nil
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err = yaml.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

// Prepare fills owner, names and dosages from the catalog records and
// validates every entry. Schedules may reference medications already in the
// store only when they carry their own name.
func (m *Manifest) Prepare(ownerID string) error {
	catalog := make(map[string]*storage.Medication, len(m.Medications))

	for _, medication := range m.Medications {
		if medication.ID == "" {
			return errMedicationID
		}

		catalog[medication.ID] = medication
	}

	seen := make(map[string]struct{}, len(m.Schedules))

	for _, imported := range m.Schedules {
		entry := &imported.Entry

		if _, ok := seen[entry.ID]; ok {
			return fmt.Errorf("%w: %s", errDuplicateSchedule, entry.ID)
		}

		seen[entry.ID] = struct{}{}

		if entry.OwnerID == "" {
			entry.OwnerID = ownerID
		}

		if medication, ok := catalog[entry.MedicationID]; ok {
			if entry.MedicationName == "" {
				entry.MedicationName = medication.Name
			}

			if entry.Dosage == "" {
				entry.Dosage = medication.DefaultDosage
			}
		} else if entry.MedicationName == "" {
			return fmt.Errorf("entry %s: %w: %q", entry.ID, errUnknownMedication, entry.MedicationID)
		}

		if err := entry.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Apply writes the catalog, then the schedules, then the removals.
func (m *Manifest) Apply(ctx context.Context, store writer) (Result, error) {
	var result Result

	for _, medication := range m.Medications {
		if err := store.UpsertMedication(ctx, medication); err != nil {
			return result, err
		}

		result.Medications++
	}

	for _, imported := range m.Schedules {
		if err := store.UpsertSchedule(ctx, &imported.Entry); err != nil {
			return result, err
		}

		result.Schedules++
	}

	for _, id := range m.Remove {
		err := store.DeleteSchedule(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			logger.WarnKV(ctx, "Schedule to remove does not exist", "schedule_id", id)

			continue
		}

		if err != nil {
			return result, err
		}

		result.Removed++
	}

	return result, nil
}
