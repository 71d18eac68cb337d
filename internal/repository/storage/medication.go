package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Medication is the catalog record used for display and notification text.
type Medication struct {
	// ID is the catalog identifier referenced by schedule entries.
	ID string `yaml:"id"`
	// Name is the display name.
	Name string `yaml:"name"`
	// DefaultDosage is used when an entry carries no dosage of its own.
	DefaultDosage string `yaml:"default_dosage"`
}

// MedicationCatalog is the read-only medication lookup.
type MedicationCatalog interface {
	Get(ctx context.Context, id string) (*Medication, error)
}

// Get returns the medication by id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Medication, error) {
	medication := Medication{ID: id}

	err := s.queryRow(ctx, `SELECT name, default_dosage FROM medications WHERE id = ?`, id).
		Scan(&medication.Name, &medication.DefaultDosage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("medication %s: %w", id, ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get medication %s: %w", id, err)
	}

	return &medication, nil
}

// UpsertMedication inserts or replaces a catalog record.
func (s *Store) UpsertMedication(ctx context.Context, medication *Medication) error {
	_, err := s.exec(ctx,
		`INSERT INTO medications (id, name, default_dosage) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, default_dosage = excluded.default_dosage`,
		medication.ID,
		medication.Name,
		medication.DefaultDosage,
	)
	if err != nil {
		return fmt.Errorf("upsert medication %s: %w", medication.ID, err)
	}

	return nil
}
