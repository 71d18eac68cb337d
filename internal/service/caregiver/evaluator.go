// Package caregiver answers whether a dependent's next dose can be marked as
// taken from the caregiver's side, and records it when it can.
package caregiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

const (
	// EarlyWindow is how long before the scheduled time a dose may be marked.
	EarlyWindow = 5 * time.Minute
	// LateWindow is how long after the scheduled time a dose may be marked.
	LateWindow = 30 * time.Minute
)

// ErrNotEligible is returned by MarkTaken outside the eligibility window.
var ErrNotEligible = errors.New("dose is not eligible to be marked as taken")

// Assessment is the caregiver view of the next pending dose.
type Assessment struct {
	// NothingPending is true when no dose of today is still open.
	NothingPending bool
	// Entry is the pending entry.
	Entry *schedule.Entry
	// Scheduled is the pending occurrence.
	Scheduled time.Time
	// Eligible is true inside [Scheduled-EarlyWindow, Scheduled+LateWindow].
	Eligible bool
	// Remaining is the time until Scheduled while not yet eligible.
	Remaining time.Duration
	// WindowStart is when marking becomes possible.
	WindowStart time.Time
	// WindowEnd is when marking stops being possible.
	WindowEnd time.Time
}

// Evaluator evaluates and records caregiver-confirmed doses.
type Evaluator struct {
	// store provides the dependent's entries.
	store storage.ScheduleStore
	// ledger records doses.
	ledger storage.DoseLedger
}

// NewEvaluator returns an evaluator over store and ledger.
func NewEvaluator(store storage.ScheduleStore, ledger storage.DoseLedger) *Evaluator {
	return &Evaluator{
		store:  store,
		ledger: ledger,
	}
}

// Evaluate picks the earliest fixed entry due today that has no dose yet and
// whose window has not closed, and reports whether it can be marked at now.
func (e *Evaluator) Evaluate(ctx context.Context, ownerID string, now time.Time) (Assessment, error) {
	entries, err := e.store.QueryActive(ctx, ownerID)
	if err != nil {
		return Assessment{}, fmt.Errorf("query active schedules: %w", err)
	}

	var (
		best      *schedule.Entry
		scheduled time.Time
	)

	for _, entry := range entries {
		if entry.EffectiveKind() != schedule.KindFixed || !entry.Days.Has(now.Weekday()) {
			continue
		}

		at := entry.TimeOfDay.On(now)
		if at.Add(LateWindow).Before(now) {
			continue
		}

		if best != nil && !at.Before(scheduled) {
			continue
		}

		exists, err := e.ledger.Exists(ctx, dose.KeyFor(entry, at))
		if err != nil {
			return Assessment{}, fmt.Errorf("check dose ledger: %w", err)
		}

		if exists {
			continue
		}

		best, scheduled = entry, at
	}

	if best == nil {
		return Assessment{NothingPending: true}, nil
	}

	assessment := Assessment{
		Entry:       best.Clone(),
		Scheduled:   scheduled,
		WindowStart: scheduled.Add(-EarlyWindow),
		WindowEnd:   scheduled.Add(LateWindow),
	}

	assessment.Eligible = !now.Before(assessment.WindowStart) && !now.After(assessment.WindowEnd)
	if !assessment.Eligible {
		assessment.Remaining = scheduled.Sub(now)
	}

	return assessment, nil
}

// MarkTaken records the pending dose on behalf of actor when it is eligible.
func (e *Evaluator) MarkTaken(ctx context.Context, ownerID string, actor *domain.Actor, now time.Time) (Assessment, error) {
	assessment, err := e.Evaluate(ctx, ownerID, now)
	if err != nil {
		return assessment, err
	}

	if assessment.NothingPending || !assessment.Eligible {
		return assessment, ErrNotEligible
	}

	event := dose.NewTaken(assessment.Entry, assessment.Scheduled, now, dose.SourceCaregiver, actor.String())
	if err = e.ledger.Append(ctx, event); err != nil {
		if errors.Is(err, storage.ErrDuplicateDose) {
			return assessment, nil
		}

		metrics.IncLedgerError("append")

		return assessment, fmt.Errorf("record dose: %w", err)
	}

	metrics.IncAcknowledgment(string(dose.SourceCaregiver))
	logger.InfoKV(ctx, "Dose marked by caregiver",
		"owner_id", ownerID,
		"schedule_id", assessment.Entry.ID,
		"actor", actor.String())

	return assessment, nil
}

// Describe renders the assessment as the caregiver screen would show it.
func (a Assessment) Describe() string {
	switch {
	case a.NothingPending:
		return "No doses pending today"
	case a.Eligible:
		return fmt.Sprintf("%s %s can be marked as taken until %s",
			a.Entry.MedicationName, a.Entry.Dosage, a.WindowEnd.Format("15:04"))
	default:
		remaining := a.Remaining.Round(time.Minute)

		return fmt.Sprintf("Next dose %s %s in %dh%02dm",
			a.Entry.MedicationName, a.Entry.Dosage, int(remaining.Hours()), int(remaining.Minutes())%60)
	}
}
