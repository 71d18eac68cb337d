package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/med-alarm/internal/config"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

const manifestYAML = `
medications:
  - id: metformin
    name: Metformin
    default_dosage: 500mg
  - id: amoxicillin
    name: Amoxicillin
    default_dosage: 250mg
schedules:
  - id: s1
    medication_id: metformin
    time: "08:00"
    days: [mon, wed, fri]
  - id: s2
    medication_id: amoxicillin
    dosage: 2 pills
    kind: interval
    time: "06:00"
    interval_hours: 8
    active: false
remove: [gone]
`

func writeManifest(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestManifest_Prepare(t *testing.T) {
	t.Parallel()

	manifest, err := Load(writeManifest(t, manifestYAML))
	require.NoError(t, err)
	require.NoError(t, manifest.Prepare("u1"))

	require.Len(t, manifest.Schedules, 2)

	fixed := manifest.Schedules[0].Entry
	require.Equal(t, "u1", fixed.OwnerID)
	require.Equal(t, "Metformin", fixed.MedicationName)
	require.Equal(t, "500mg", fixed.Dosage)
	require.Equal(t, schedule.MustClock("08:00"), fixed.TimeOfDay)
	require.True(t, fixed.Days.Has(time.Wednesday))
	require.False(t, fixed.Days.Has(time.Tuesday))
	require.True(t, fixed.Active)

	interval := manifest.Schedules[1].Entry
	require.Equal(t, schedule.KindInterval, interval.Kind)
	require.Equal(t, "2 pills", interval.Dosage)
	require.False(t, interval.Active)
}

func TestManifest_PrepareRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		wantErr  error
	}{
		{
			name: "duplicate id",
			manifest: `
medications: [{id: m, name: M}]
schedules:
  - {id: s1, medication_id: m, time: "08:00", days: [mon]}
  - {id: s1, medication_id: m, time: "09:00", days: [mon]}
`,
			wantErr: errDuplicateSchedule,
		},
		{
			name: "unknown medication",
			manifest: `
schedules:
  - {id: s1, medication_id: m, time: "08:00", days: [mon]}
`,
			wantErr: errUnknownMedication,
		},
		{
			name:     "medication without id",
			manifest: `medications: [{name: M}]`,
			wantErr:  errMedicationID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manifest, err := Load(writeManifest(t, tt.manifest))
			require.NoError(t, err)
			require.ErrorIs(t, manifest.Prepare("u1"), tt.wantErr)
		})
	}

	manifest, err := Load(writeManifest(t, `schedules: [{id: s1, medication_id: m, medication_name: M, time: "08:00"}]`))
	require.NoError(t, err)
	require.Error(t, manifest.Prepare("u1"), "fixed entry without days")
}

// TestRun_ImportsIntoStore imports twice; the second run is an update.
func TestRun_ImportsIntoStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "medalarm.db")
	configPath := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(configPath, &config.Config{
		OwnerID:  "u1",
		Database: config.Database{Driver: config.DriverSQLite, DSN: dbPath},
	}))

	opts := &Options{ConfigPath: configPath, ManifestPath: writeManifest(t, manifestYAML)}
	require.NoError(t, Run(ctx, opts))
	require.NoError(t, Run(ctx, opts))

	store, err := storage.Open(ctx, storage.DriverSQLite, dbPath)
	require.NoError(t, err)

	defer func() {
		_ = store.Close()
	}()

	entries, err := store.QueryActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "s1", entries[0].ID)

	medication, err := store.Get(ctx, "amoxicillin")
	require.NoError(t, err)
	require.Equal(t, "250mg", medication.DefaultDosage)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "medalarm.db")
	configPath := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(configPath, &config.Config{
		OwnerID:  "u1",
		Database: config.Database{Driver: config.DriverSQLite, DSN: dbPath},
	}))

	opts := &Options{ConfigPath: configPath, ManifestPath: writeManifest(t, manifestYAML), DryRun: true}
	require.NoError(t, Run(context.Background(), opts))

	_, err := os.Stat(dbPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}
