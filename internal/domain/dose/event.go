package dose

import (
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// DayLayout is the calendar date format of Event.Day.
const DayLayout = time.DateOnly

// Status is the outcome recorded for a dose.
type Status string

const (
	// StatusTaken records an acknowledged dose.
	StatusTaken Status = "taken"
	// StatusNotTaken records an explicitly skipped dose.
	StatusNotTaken Status = "not_taken"
)

// Source tells which delivery path recorded the dose.
type Source string

const (
	// SourceAlarm is an acknowledgment of the in-process alarm.
	SourceAlarm Source = "alarm"
	// SourceNotification is a confirm action on a platform notification.
	SourceNotification Source = "notification"
	// SourceCaregiver is a dose marked from the dependent/caregiver flow.
	SourceCaregiver Source = "caregiver"
)

// Event is a persisted record that a dose was handled on a calendar day.
type Event struct {
	// ID is a random UUID.
	ID string
	// OwnerID is the user or dependent who took the dose.
	OwnerID string
	// MedicationID references the medication catalog.
	MedicationID string
	// MedicationName is denormalised for history screens.
	MedicationName string
	// Dosage as shown on the alarm.
	Dosage string
	// ScheduleTime is the scheduled time of day of the occurrence.
	ScheduleTime schedule.Clock
	// Day is the local calendar date of the occurrence (YYYY-MM-DD).
	Day string
	// ActualTime is when the dose was recorded.
	ActualTime time.Time
	// Status is taken or not_taken.
	Status Status
	// Source is the delivery path that recorded the dose.
	Source Source
	// AcknowledgedBy is "user@host" of whoever confirmed, if known.
	AcknowledgedBy string
}

// Key identifies one occurrence of a schedule entry of one owner.
type Key struct {
	// OwnerID scopes the key: owners share the medication catalog.
	OwnerID string
	// MedicationID references the medication catalog.
	MedicationID string
	// ScheduleTime is the scheduled time of day.
	ScheduleTime schedule.Clock
	// Day is the local calendar date (YYYY-MM-DD).
	Day string
}

// DayOf returns the calendar date of t in t's location.
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// KeyFor returns the occurrence key of entry at the given scheduled time.
func KeyFor(e *schedule.Entry, scheduled time.Time) Key {
	return Key{
		OwnerID:      e.OwnerID,
		MedicationID: e.MedicationID,
		ScheduleTime: schedule.ClockOf(scheduled),
		Day:          DayOf(scheduled),
	}
}

// NewTaken builds a taken event for the occurrence of e at scheduled.
func NewTaken(e *schedule.Entry, scheduled, now time.Time, source Source, acknowledgedBy string) *Event {
	return &Event{
		ID:             uuid.NewString(),
		OwnerID:        e.OwnerID,
		MedicationID:   e.MedicationID,
		MedicationName: e.MedicationName,
		Dosage:         e.Dosage,
		ScheduleTime:   schedule.ClockOf(scheduled),
		Day:            DayOf(scheduled),
		ActualTime:     now,
		Status:         StatusTaken,
		Source:         source,
		AcknowledgedBy: acknowledgedBy,
	}
}

// Key returns the deduplication key of the event.
func (e *Event) Key() Key {
	return Key{
		OwnerID:      e.OwnerID,
		MedicationID: e.MedicationID,
		ScheduleTime: e.ScheduleTime,
		Day:          e.Day,
	}
}
