package alarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

const (
	// IntervalWindow is how long after an interval slot the alarm may still fire.
	IntervalWindow = 5 * time.Minute
	// IntervalTolerance is how close to a slot an existing dose counts as that slot's dose.
	IntervalTolerance = 30 * time.Minute
)

// Firer starts an alarm for an entry occurrence.
type Firer interface {
	Fire(ctx context.Context, entry *schedule.Entry, scheduled time.Time) error
}

// Matcher decides whether a schedule entry is due now and fires it.
type Matcher struct {
	// ledger answers whether an occurrence was already recorded.
	ledger storage.DoseLedger
	// firer starts the alarm.
	firer Firer
}

// NewMatcher returns a matcher recording through ledger and firing through firer.
func NewMatcher(ledger storage.DoseLedger, firer Firer) *Matcher {
	return &Matcher{
		ledger: ledger,
		firer:  firer,
	}
}

// Due returns the occurrence of entry matching now. A fixed entry matches only
// during its exact minute on one of its weekdays; an interval entry matches
// within IntervalWindow after a slot.
func Due(entry *schedule.Entry, now time.Time) (time.Time, bool) {
	if !entry.Active {
		return time.Time{}, false
	}

	switch entry.EffectiveKind() {
	case schedule.KindFixed:
		if schedule.ClockOf(now) != entry.TimeOfDay || !entry.Days.Has(now.Weekday()) {
			return time.Time{}, false
		}

		return entry.TimeOfDay.On(now), true
	case schedule.KindInterval:
		slot, ok := schedule.IntervalSlot(entry, now)
		if !ok || now.Sub(slot) > IntervalWindow {
			return time.Time{}, false
		}

		return slot, true
	default:
		return time.Time{}, false
	}
}

// Evaluate fires entry when it is due, not yet recorded, and no other alarm
// is active. It reports whether an alarm was started. A busy state machine is
// not an error: the occurrence is dropped and not retried.
func (m *Matcher) Evaluate(ctx context.Context, entry *schedule.Entry, now time.Time) (bool, error) {
	scheduled, due := Due(entry, now)
	if !due {
		return false, nil
	}

	ctx = logger.WithFields(ctx, "schedule_id", entry.ID, "scheduled", scheduled.Format(time.RFC3339))

	recorded, err := m.recorded(ctx, entry, scheduled)
	if err != nil {
		metrics.IncLedgerError("exists")

		return false, err
	}

	if recorded {
		logger.DebugKV(ctx, "Occurrence already recorded")

		return false, nil
	}

	err = m.firer.Fire(ctx, entry, scheduled)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAlarmBusy):
		logger.InfoKV(ctx, "Alarm already active, occurrence dropped")

		return false, nil
	default:
		return false, fmt.Errorf("fire alarm: %w", err)
	}
}

func (m *Matcher) recorded(ctx context.Context, entry *schedule.Entry, scheduled time.Time) (bool, error) {
	exists, err := m.ledger.Exists(ctx, dose.KeyFor(entry, scheduled))
	if err != nil {
		return false, fmt.Errorf("check dose ledger: %w", err)
	}

	if exists || entry.EffectiveKind() != schedule.KindInterval {
		return exists, nil
	}

	events, err := m.ledger.ListDay(ctx, entry.OwnerID, entry.MedicationID, dose.DayOf(scheduled))
	if err != nil {
		return false, fmt.Errorf("list doses: %w", err)
	}

	for _, event := range events {
		if event.Status != dose.StatusTaken {
			continue
		}

		if diff := event.ActualTime.Sub(scheduled).Abs(); diff <= IntervalTolerance {
			return true, nil
		}
	}

	return false, nil
}
