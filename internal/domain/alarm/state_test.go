package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())
	require.Empty(t, (*Actor)(nil).String())

	a := &Actor{
		Hostname: "desk",
		Username: "o.shokin",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, "o.shokin@desk", b.String())
}

// TestStateClone verifies that State.Clone copies fields and deep-copies references.
func TestStateClone(t *testing.T) {
	t.Parallel()

	ts := time.Now().UTC().Truncate(time.Second)
	s := State{
		Phase: PhaseRinging,
		Current: &schedule.Entry{
			ID:        "e1",
			TimeOfDay: schedule.MustClock("08:00"),
		},
		Scheduled: ts,
		Since:     ts,
		LastActor: &Actor{
			Hostname: "desk",
			Username: "o.shokin",
		},
	}

	c := s.Clone()
	require.Equal(t, s.Phase, c.Phase)
	require.Equal(t, s.Since, c.Since)
	require.Equal(t, s.Current, c.Current)
	require.Equal(t, s.LastActor, c.LastActor)
	require.False(t, c.Idle())

	require.NotSame(t, s.Current, c.Current)
	require.NotSame(t, s.LastActor, c.LastActor)

	require.True(t, (&State{}).Idle())
}
