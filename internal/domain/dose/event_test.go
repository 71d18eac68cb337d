package dose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// TestNewTaken verifies the event carries the occurrence key, not the ack time.
func TestNewTaken(t *testing.T) {
	t.Parallel()

	entry := &schedule.Entry{
		ID:             "e1",
		OwnerID:        "u1",
		MedicationID:   "m1",
		MedicationName: "Losartan",
		Dosage:         "50mg",
		TimeOfDay:      schedule.MustClock("08:00"),
	}

	scheduled := time.Date(2026, time.October, 12, 8, 0, 0, 0, time.UTC)
	acked := scheduled.Add(3 * time.Minute)

	e := NewTaken(entry, scheduled, acked, SourceAlarm, "o.shokin@desk")

	require.NotEmpty(t, e.ID)
	require.Equal(t, StatusTaken, e.Status)
	require.Equal(t, "2026-10-12", e.Day)
	require.Equal(t, acked, e.ActualTime)
	require.Equal(t, Key{OwnerID: entry.OwnerID, MedicationID: "m1", ScheduleTime: schedule.MustClock("08:00"), Day: "2026-10-12"}, e.Key())
	require.Equal(t, e.Key(), KeyFor(entry, scheduled))

	other := NewTaken(entry, scheduled, acked, SourceAlarm, "")
	require.NotEqual(t, e.ID, other.ID)
}
