package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// ScheduleStore is the persisted, queryable collection of schedule entries.
type ScheduleStore interface {
	// QueryActive returns the owner's active entries in insertion order.
	QueryActive(ctx context.Context, ownerID string) ([]*schedule.Entry, error)
}

// ScheduleSubscriber is a ScheduleStore with live change notifications.
type ScheduleSubscriber interface {
	ScheduleStore

	// Subscribe returns a channel signalled after every schedule change.
	// The channel is closed when ctx is done.
	Subscribe(ctx context.Context) <-chan struct{}
}

const scheduleColumns = `id, owner_id, medication_id, medication_name, dosage, kind,
	time_of_day, days, interval_hours, active`

// QueryActive returns the owner's active entries in insertion order.
func (s *Store) QueryActive(ctx context.Context, ownerID string) ([]*schedule.Entry, error) {
	rows, err := s.query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE owner_id = ? AND active = 1
		 ORDER BY position, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query active schedules: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var entries []*schedule.Entry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("query active schedules: %w", err)
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("query active schedules: %w", err)
	}

	return entries, nil
}

// GetSchedule returns a single entry by id, active or not.
func (s *Store) GetSchedule(ctx context.Context, id string) (*schedule.Entry, error) {
	rows, err := s.query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}

		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	entry, err := scanEntry(rows)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	return entry, nil
}

// UpsertSchedule inserts or replaces an entry and notifies subscribers.
func (s *Store) UpsertSchedule(ctx context.Context, entry *schedule.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}

	_, err := s.exec(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM schedules))
		 ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			medication_id = excluded.medication_id,
			medication_name = excluded.medication_name,
			dosage = excluded.dosage,
			kind = excluded.kind,
			time_of_day = excluded.time_of_day,
			days = excluded.days,
			interval_hours = excluded.interval_hours,
			active = excluded.active`,
		entry.ID,
		entry.OwnerID,
		entry.MedicationID,
		entry.MedicationName,
		entry.Dosage,
		string(entry.EffectiveKind()),
		entry.TimeOfDay.String(),
		entry.Days.String(),
		entry.IntervalHours,
		boolToInt(entry.Active),
	)
	if err != nil {
		return fmt.Errorf("upsert schedule %s: %w", entry.ID, err)
	}

	s.notify()

	return nil
}

// DeleteSchedule removes an entry and notifies subscribers.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	s.notify()

	return nil
}

// Subscribe returns a channel signalled after every schedule change.
// Signals coalesce: a slow reader sees one pending signal, not a backlog.
func (s *Store) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.subscribers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// notify signals every subscriber without blocking.
func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// rowScanner is implemented by *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry decodes a schedules row.
func scanEntry(row rowScanner) (*schedule.Entry, error) {
	var (
		entry    schedule.Entry
		kind     string
		clock    string
		days     string
		isActive int
	)

	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.MedicationID,
		&entry.MedicationName,
		&entry.Dosage,
		&kind,
		&clock,
		&days,
		&entry.IntervalHours,
		&isActive,
	)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	entry.Kind = schedule.Kind(kind)
	entry.Active = isActive != 0

	if entry.TimeOfDay, err = schedule.ParseClock(clock); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", entry.ID, err)
	}

	if days != "" {
		if entry.Days, err = schedule.ParseWeekdays(strings.Split(days, ",")); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", entry.ID, err)
		}
	}

	return &entry, nil
}
