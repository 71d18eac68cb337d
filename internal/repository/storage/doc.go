// Package storage implements the schedule store, dose ledger and medication
// catalog on database/sql.
//
// SQLite (modernc.org/sqlite, pure Go) is the default backend; PostgreSQL is
// available through the pgx stdlib driver. The dose_events table carries a
// unique index on (owner_id, medication_id, schedule_time, day): Append is an atomic
// check-then-insert, and a second writer for the same occurrence gets
// ErrDuplicateDose instead of a second row.
package storage
