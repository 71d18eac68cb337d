package storage

import (
	"context"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 1

//nolint:gochecknoglobals // Ordered DDL statements of schema version 1.
var schemaV1 = []struct {
	name string
	ddl  string
}{
	{
		name: "create medications table",
		ddl: `CREATE TABLE IF NOT EXISTS medications (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			default_dosage TEXT NOT NULL DEFAULT ''
		)`,
	},
	{
		name: "create schedules table",
		ddl: `CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			medication_id TEXT NOT NULL,
			medication_name TEXT NOT NULL DEFAULT '',
			dosage TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT 'fixed',
			time_of_day TEXT NOT NULL,
			days TEXT NOT NULL DEFAULT '',
			interval_hours INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			position INTEGER NOT NULL DEFAULT 0
		)`,
	},
	{
		name: "index schedules by owner",
		ddl:  `CREATE INDEX IF NOT EXISTS schedules_owner_idx ON schedules (owner_id, active)`,
	},
	{
		name: "create dose_events table",
		ddl: `CREATE TABLE IF NOT EXISTS dose_events (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			medication_id TEXT NOT NULL,
			medication_name TEXT NOT NULL DEFAULT '',
			dosage TEXT NOT NULL DEFAULT '',
			schedule_time TEXT NOT NULL,
			day TEXT NOT NULL,
			actual_time TEXT NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			acknowledged_by TEXT NOT NULL DEFAULT ''
		)`,
	},
	{
		name: "unique dose per occurrence",
		ddl: `CREATE UNIQUE INDEX IF NOT EXISTS dose_events_occurrence_idx
			ON dose_events (owner_id, medication_id, schedule_time, day)`,
	},
}

// Migrate ensures the schema exists and is upgraded to SchemaVersion.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int

	err = s.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, step := range schemaV1 {
		if _, err = tx.ExecContext(ctx, step.ddl); err != nil {
			return fmt.Errorf("migrate: %s: %w", step.name, err)
		}
	}

	if _, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}

	return nil
}
