package schedule

import (
	"errors"
	"fmt"
)

// Kind distinguishes how an entry recurs.
type Kind string

const (
	// KindFixed fires at TimeOfDay on each day listed in Days.
	KindFixed Kind = "fixed"
	// KindInterval fires every IntervalHours starting at TimeOfDay.
	KindInterval Kind = "interval"
)

var (
	// errEntryIDRequired is returned when an entry has no identifier.
	errEntryIDRequired = errors.New("entry id must be provided")
	// errOwnerRequired is returned when an entry has no owner.
	errOwnerRequired = errors.New("owner id must be provided")
	// errMedicationRequired is returned when an entry references no medication.
	errMedicationRequired = errors.New("medication id must be provided")
	// errNoDays is returned for a fixed entry without weekdays.
	errNoDays = errors.New("fixed entry must list at least one weekday")
	// errBadInterval is returned for an interval entry with a non-positive period.
	errBadInterval = errors.New("interval entry must have a positive interval")
	// errUnknownKind is returned for an unsupported Kind value.
	errUnknownKind = errors.New("unknown entry kind")
)

// Entry is a recurring medication reminder definition.
type Entry struct {
	// ID identifies the entry in the schedule store.
	ID string `yaml:"id"`
	// OwnerID is the user or dependent the reminder belongs to.
	OwnerID string `yaml:"owner_id"`
	// MedicationID references the medication catalog.
	MedicationID string `yaml:"medication_id"`
	// MedicationName is denormalised for display.
	MedicationName string `yaml:"medication_name"`
	// Dosage is free text shown on the alarm, e.g. "2 pills".
	Dosage string `yaml:"dosage"`
	// Kind selects fixed-time or interval recurrence. Empty means fixed.
	Kind Kind `yaml:"kind"`
	// TimeOfDay is the due time, or the first dose of the day for intervals.
	TimeOfDay Clock `yaml:"time"`
	// Days lists the weekdays a fixed entry is due on.
	Days Weekdays `yaml:"days"`
	// IntervalHours is the period of an interval entry.
	IntervalHours int `yaml:"interval_hours"`
	// Active disables the entry without deleting it when false.
	Active bool `yaml:"active"`
}

// EffectiveKind returns Kind, defaulting to KindFixed.
func (e *Entry) EffectiveKind() Kind {
	if e.Kind == "" {
		return KindFixed
	}

	return e.Kind
}

// Validate checks the entry for the fields its kind requires.
func (e *Entry) Validate() error {
	switch {
	case e.ID == "":
		return errEntryIDRequired
	case e.OwnerID == "":
		return errOwnerRequired
	case e.MedicationID == "":
		return errMedicationRequired
	}

	switch e.EffectiveKind() {
	case KindFixed:
		if e.Days.Empty() {
			return fmt.Errorf("entry %s: %w", e.ID, errNoDays)
		}
	case KindInterval:
		if e.IntervalHours <= 0 {
			return fmt.Errorf("entry %s: %w", e.ID, errBadInterval)
		}
	default:
		return fmt.Errorf("entry %s: %w: %q", e.ID, errUnknownKind, e.Kind)
	}

	return nil
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}
