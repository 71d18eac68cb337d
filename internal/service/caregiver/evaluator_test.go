package caregiver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// monday returns 2026-10-12 (a Monday) at hour:minute UTC.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

type fakeStore []*schedule.Entry

func (s fakeStore) QueryActive(context.Context, string) ([]*schedule.Entry, error) {
	return s, nil
}

type fakeLedger struct {
	events map[dose.Key]*dose.Event
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{events: make(map[dose.Key]*dose.Event)}
}

func (l *fakeLedger) Exists(_ context.Context, key dose.Key) (bool, error) {
	_, ok := l.events[key]

	return ok, nil
}

func (l *fakeLedger) Append(_ context.Context, event *dose.Event) error {
	if _, ok := l.events[event.Key()]; ok {
		return storage.ErrDuplicateDose
	}

	l.events[event.Key()] = event

	return nil
}

func (l *fakeLedger) ListDay(context.Context, string, string, string) ([]*dose.Event, error) {
	return nil, nil
}

func entryAt(id, clock string) *schedule.Entry {
	return &schedule.Entry{
		ID:             id,
		OwnerID:        "dep1",
		MedicationID:   "m-" + id,
		MedicationName: "Metformin",
		Dosage:         "500mg",
		Kind:           schedule.KindFixed,
		TimeOfDay:      schedule.MustClock(clock),
		Days:           schedule.EveryDay,
		Active:         true,
	}
}

// TestEvaluate_LateWindow is eligible 25 minutes late and closed after 30.
func TestEvaluate_LateWindow(t *testing.T) {
	t.Parallel()

	evaluator := NewEvaluator(fakeStore{entryAt("s1", "09:00")}, newFakeLedger())
	ctx := context.Background()

	assessment, err := evaluator.Evaluate(ctx, "dep1", monday(9, 25))
	require.NoError(t, err)
	require.True(t, assessment.Eligible)
	require.True(t, monday(9, 0).Equal(assessment.Scheduled))

	assessment, err = evaluator.Evaluate(ctx, "dep1", monday(9, 31))
	require.NoError(t, err)
	require.False(t, assessment.Eligible)
	require.True(t, assessment.NothingPending)
}

// TestEvaluate_Windows covers the early boundary and the remaining time.
func TestEvaluate_Windows(t *testing.T) {
	t.Parallel()

	evaluator := NewEvaluator(fakeStore{entryAt("s2", "20:00"), entryAt("s1", "09:00")}, newFakeLedger())
	ctx := context.Background()

	assessment, err := evaluator.Evaluate(ctx, "dep1", monday(8, 54))
	require.NoError(t, err)
	require.False(t, assessment.Eligible)
	require.Equal(t, 6*time.Minute, assessment.Remaining)
	require.Equal(t, "s1", assessment.Entry.ID)
	require.Equal(t, "Next dose Metformin 500mg in 0h06m", assessment.Describe())

	assessment, err = evaluator.Evaluate(ctx, "dep1", monday(8, 55))
	require.NoError(t, err)
	require.True(t, assessment.Eligible)
	require.Zero(t, assessment.Remaining)

	assessment, err = evaluator.Evaluate(ctx, "dep1", monday(12, 0))
	require.NoError(t, err)
	require.Equal(t, "s2", assessment.Entry.ID)
	require.Equal(t, 8*time.Hour, assessment.Remaining)
}

// TestMarkTaken records inside the window and refuses outside it.
func TestMarkTaken(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	evaluator := NewEvaluator(fakeStore{entryAt("s1", "09:00"), entryAt("s2", "20:00")}, ledger)
	ctx := context.Background()
	actor := &domain.Actor{Hostname: "caregiver-phone", Username: "joana"}

	_, err := evaluator.MarkTaken(ctx, "dep1", actor, monday(8, 30))
	require.ErrorIs(t, err, ErrNotEligible)
	require.Empty(t, ledger.events)

	assessment, err := evaluator.MarkTaken(ctx, "dep1", actor, monday(9, 10))
	require.NoError(t, err)
	require.Equal(t, "s1", assessment.Entry.ID)

	event := ledger.events[dose.KeyFor(entryAt("s1", "09:00"), monday(9, 0))]
	require.NotNil(t, event)
	require.Equal(t, dose.SourceCaregiver, event.Source)
	require.Equal(t, "joana@caregiver-phone", event.AcknowledgedBy)

	assessment, err = evaluator.Evaluate(ctx, "dep1", monday(9, 11))
	require.NoError(t, err)
	require.Equal(t, "s2", assessment.Entry.ID)
	require.False(t, assessment.Eligible)
}
