package alarm

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/platform"
)

var ana = &domain.Actor{Hostname: "kitchen", Username: "ana"}

// TestMachine_FireAcknowledge walks ringing, acknowledging and idle.
func TestMachine_FireAcknowledge(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, fixedNow(monday(8, 0)))
		entry := fixedEntry("s1", "m1", "08:00", time.Monday)
		ctx := context.Background()

		resynced := make(chan struct{}, 1)
		h.machine.OnAcknowledged(func(context.Context) { resynced <- struct{}{} })

		require.NoError(t, h.machine.Fire(ctx, entry, monday(8, 0)))

		playing, vibrating := h.actuator.outputs()
		require.True(t, playing)
		require.True(t, vibrating)
		require.True(t, h.notifier.shown(NotificationID(entry)))
		require.Equal(t, domain.PhaseRinging, h.snapshots.last().Phase)

		require.True(t, h.machine.Acknowledge(ctx, ana, dose.SourceAlarm))

		playing, vibrating = h.actuator.outputs()
		require.False(t, playing)
		require.False(t, vibrating)
		require.False(t, h.notifier.shown(NotificationID(entry)))
		require.Equal(t, domain.PhaseAcknowledging, h.machine.State().Phase)
		require.ErrorIs(t, h.machine.Fire(ctx, entry, monday(8, 0)), ErrAlarmBusy)

		require.Equal(t, 1, h.ledger.count())
		event := h.ledger.events[0]
		require.Equal(t, dose.StatusTaken, event.Status)
		require.Equal(t, "2026-10-12", event.Day)
		require.Equal(t, "08:00", event.ScheduleTime.String())
		require.Equal(t, "ana@kitchen", event.AcknowledgedBy)

		time.Sleep(DefaultSettleDelay)
		synctest.Wait()

		state := h.machine.State()
		require.True(t, state.Idle())
		require.Nil(t, state.Current)
		require.Equal(t, ana, state.LastActor)
		require.Len(t, resynced, 1)
		require.True(t, h.snapshots.last().Idle())
	})
}

// TestMachine_AcknowledgeWhileIdle acknowledging while idle changes nothing.
func TestMachine_AcknowledgeWhileIdle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixedNow(monday(8, 0)))

	require.False(t, h.machine.Acknowledge(context.Background(), ana, dose.SourceAlarm))
	require.Zero(t, h.ledger.count())
	require.True(t, h.machine.State().Idle())
	require.Nil(t, h.snapshots.last())
}

// TestMachine_AppendFailure still returns to idle when the ledger fails.
func TestMachine_AppendFailure(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, fixedNow(monday(8, 0)))
		h.ledger.appendErr = errors.New("disk full")
		ctx := context.Background()

		require.NoError(t, h.machine.Fire(ctx, fixedEntry("s1", "m1", "08:00", time.Monday), monday(8, 0)))
		require.True(t, h.machine.Acknowledge(ctx, ana, dose.SourceAlarm))

		time.Sleep(DefaultSettleDelay)
		synctest.Wait()

		require.True(t, h.machine.State().Idle())
		require.Zero(t, h.ledger.count())
	})
}

// TestMachine_DuplicateAcknowledge treats an existing dose as recorded.
func TestMachine_DuplicateAcknowledge(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, fixedNow(monday(8, 0)))
		entry := fixedEntry("s1", "m1", "08:00", time.Monday)
		ctx := context.Background()

		require.NoError(t, h.ledger.Append(ctx,
			dose.NewTaken(entry, monday(8, 0), monday(8, 0), dose.SourceNotification, "")))
		require.NoError(t, h.machine.Fire(ctx, entry, monday(8, 0)))
		require.True(t, h.machine.Acknowledge(ctx, ana, dose.SourceAlarm))
		require.False(t, h.machine.Acknowledge(ctx, ana, dose.SourceAlarm))

		time.Sleep(DefaultSettleDelay)
		synctest.Wait()

		require.True(t, h.machine.State().Idle())
		require.Equal(t, 1, h.ledger.count())
	})
}

// TestMachine_SoundFailure keeps ringing with vibration and the notification.
func TestMachine_SoundFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fixedNow(monday(8, 0)))
	h.actuator.playErr = errors.New("sound asset missing")
	entry := fixedEntry("s1", "m1", "08:00", time.Monday)

	require.NoError(t, h.machine.Fire(context.Background(), entry, monday(8, 0)))

	playing, vibrating := h.actuator.outputs()
	require.False(t, playing)
	require.True(t, vibrating)
	require.True(t, h.notifier.shown(NotificationID(entry)))
	require.Equal(t, domain.PhaseRinging, h.machine.State().Phase)
}

// TestMachine_Subscribe delivers the current state and every transition.
func TestMachine_Subscribe(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, fixedNow(monday(8, 0)))
		ctx, cancel := context.WithCancel(context.Background())
		updates := h.machine.Subscribe(ctx)

		require.True(t, (<-updates).Idle())

		require.NoError(t, h.machine.Fire(ctx, fixedEntry("s1", "m1", "08:00", time.Monday), monday(8, 0)))
		require.Equal(t, domain.PhaseRinging, (<-updates).Phase)

		require.True(t, h.machine.Acknowledge(ctx, ana, dose.SourceAlarm))
		require.Equal(t, domain.PhaseAcknowledging, (<-updates).Phase)

		time.Sleep(DefaultSettleDelay)
		synctest.Wait()
		require.True(t, (<-updates).Idle())

		cancel()
		synctest.Wait()

		_, open := <-updates
		require.False(t, open)
	})
}

// TestMachine_Resume re-fires a ringing snapshot of today with no dose.
func TestMachine_Resume(t *testing.T) {
	t.Parallel()

	entry := fixedEntry("s1", "m1", "08:00", time.Monday)
	ringing := &domain.State{
		Phase:     domain.PhaseRinging,
		Current:   entry,
		Scheduled: monday(8, 0),
		Since:     monday(8, 0),
	}

	t.Run("same day", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, fixedNow(monday(8, 20)))
		h.snapshots.saved = ringing.Clone()

		resumed, err := h.machine.Resume(context.Background())
		require.NoError(t, err)
		require.True(t, resumed)
		require.Equal(t, domain.PhaseRinging, h.machine.State().Phase)
		require.True(t, monday(8, 0).Equal(h.machine.State().Scheduled))
	})

	t.Run("already recorded", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, fixedNow(monday(8, 20)))
		h.snapshots.saved = ringing.Clone()
		require.NoError(t, h.ledger.Append(context.Background(),
			dose.NewTaken(entry, monday(8, 0), monday(8, 5), dose.SourceNotification, "")))

		resumed, err := h.machine.Resume(context.Background())
		require.NoError(t, err)
		require.False(t, resumed)
		require.True(t, h.machine.State().Idle())
	})

	t.Run("next day", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, fixedNow(monday(8, 0).AddDate(0, 0, 1)))
		h.snapshots.saved = ringing.Clone()

		resumed, err := h.machine.Resume(context.Background())
		require.NoError(t, err)
		require.False(t, resumed)
	})

	t.Run("no snapshot", func(t *testing.T) {
		t.Parallel()

		resumed, err := newHarness(t, fixedNow(monday(8, 0))).machine.Resume(context.Background())
		require.NoError(t, err)
		require.False(t, resumed)
	})
}

// TestMachine_Notification carries the confirm action and occurrence payload.
func TestMachine_Notification(t *testing.T) {
	t.Parallel()

	entry := fixedEntry("s1", "m1", "08:00", time.Monday)
	notification := alarmNotification(entry, monday(8, 0))

	require.Equal(t, "alarm-s1", notification.ID)
	require.Equal(t, platform.AlarmChannelID, notification.ChannelID)
	require.Equal(t, []string{platform.ActionConfirm}, notification.Actions)
	require.Equal(t, "1 pill at 08:00", notification.Body)
	require.Equal(t, "s1", notification.Data[platform.PayloadScheduleID])
	require.True(t, notification.Ongoing)
}
