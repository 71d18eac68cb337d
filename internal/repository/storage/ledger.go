package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// DoseLedger is the append-only collection of dose events.
type DoseLedger interface {
	// Exists reports whether a dose event for the occurrence key exists.
	Exists(ctx context.Context, key dose.Key) (bool, error)
	// Append records a dose event. ErrDuplicateDose means the occurrence
	// was already recorded by another writer.
	Append(ctx context.Context, event *dose.Event) error
	// ListDay returns the owner's events for one medication on one day.
	ListDay(ctx context.Context, ownerID, medicationID, day string) ([]*dose.Event, error)
}

const doseColumns = `id, owner_id, medication_id, medication_name, dosage, schedule_time,
	day, actual_time, status, source, acknowledged_by`

// Exists reports whether a dose event for the occurrence key exists.
func (s *Store) Exists(ctx context.Context, key dose.Key) (bool, error) {
	var n int

	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM dose_events
		 WHERE owner_id = ? AND medication_id = ? AND schedule_time = ? AND day = ?`,
		key.OwnerID,
		key.MedicationID,
		key.ScheduleTime.String(),
		key.Day,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check dose %s %s %s %s: %w", key.OwnerID, key.MedicationID, key.ScheduleTime, key.Day, err)
	}

	return n > 0, nil
}

// Append records a dose event. The unique occurrence index turns a racing
// second insert into a no-op reported as ErrDuplicateDose.
func (s *Store) Append(ctx context.Context, event *dose.Event) error {
	result, err := s.exec(ctx,
		`INSERT INTO dose_events (`+doseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, medication_id, schedule_time, day) DO NOTHING`,
		event.ID,
		event.OwnerID,
		event.MedicationID,
		event.MedicationName,
		event.Dosage,
		event.ScheduleTime.String(),
		event.Day,
		event.ActualTime.UTC().Format(time.RFC3339Nano),
		string(event.Status),
		string(event.Source),
		event.AcknowledgedBy,
	)
	if err != nil {
		return fmt.Errorf("append dose %s: %w", event.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append dose %s: rows affected: %w", event.ID, err)
	}

	if n == 0 {
		return fmt.Errorf("append dose %s: %w", event.ID, ErrDuplicateDose)
	}

	return nil
}

// ListDay returns the owner's events for one medication on one day, oldest first.
func (s *Store) ListDay(ctx context.Context, ownerID, medicationID, day string) ([]*dose.Event, error) {
	rows, err := s.query(ctx,
		`SELECT `+doseColumns+` FROM dose_events
		 WHERE owner_id = ? AND medication_id = ? AND day = ?
		 ORDER BY schedule_time`,
		ownerID,
		medicationID,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("list doses: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var events []*dose.Event

	for rows.Next() {
		var (
			event      dose.Event
			clock      string
			actualTime string
			status     string
			source     string
		)

		err = rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.MedicationID,
			&event.MedicationName,
			&event.Dosage,
			&clock,
			&event.Day,
			&actualTime,
			&status,
			&source,
			&event.AcknowledgedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("list doses: scan: %w", err)
		}

		if event.ScheduleTime, err = schedule.ParseClock(clock); err != nil {
			return nil, fmt.Errorf("dose %s: %w", event.ID, err)
		}

		if event.ActualTime, err = time.Parse(time.RFC3339Nano, actualTime); err != nil {
			return nil, fmt.Errorf("dose %s: parse actual time: %w", event.ID, err)
		}

		event.Status = dose.Status(status)
		event.Source = dose.Source(source)

		events = append(events, &event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list doses: %w", err)
	}

	return events, nil
}
