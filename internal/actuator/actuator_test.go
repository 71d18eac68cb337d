package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingMotor records every switch.
type recordingMotor struct {
	mu     sync.Mutex
	states []bool
}

func (m *recordingMotor) Set(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = append(m.states, on)
}

func (m *recordingMotor) snapshot() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]bool(nil), m.states...)
}

// fakePlayer counts PlayLoop and Stop calls.
type fakePlayer struct {
	played  []string
	stopped int
	err     error
}

func (p *fakePlayer) PlayLoop(resource string, _ float64) error {
	if p.err != nil {
		return p.err
	}

	p.played = append(p.played, resource)

	return nil
}

func (p *fakePlayer) Stop() error {
	p.stopped++

	return nil
}

// TestGuard verifies the actuator has a single owner at a time.
func TestGuard(t *testing.T) {
	t.Parallel()

	guard := NewGuard()

	release, err := guard.Acquire()
	require.NoError(t, err)
	require.True(t, guard.Busy())

	_, err = guard.Acquire()
	require.ErrorIs(t, err, ErrActuatorBusy)

	release()
	release()
	require.False(t, guard.Busy())

	release, err = guard.Acquire()
	require.NoError(t, err)
	release()
}

// TestVibrator_Once plays the pattern once and leaves the motor off.
func TestVibrator_Once(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		motor := new(recordingMotor)
		vibrator := NewVibrator(motor)

		require.NoError(t, vibrator.Start(DefaultPattern, false))
		time.Sleep(4 * time.Second)
		synctest.Wait()

		require.False(t, vibrator.Running())
		require.Equal(t, []bool{true, false, true, false, false}, motor.snapshot())
	})
}

// TestVibrator_RepeatUntilCancel keeps pulsing until cancelled.
func TestVibrator_RepeatUntilCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		motor := new(recordingMotor)
		vibrator := NewVibrator(motor)

		require.NoError(t, vibrator.Start(DefaultPattern, true))
		time.Sleep(6*time.Second + 100*time.Millisecond)
		require.True(t, vibrator.Running())

		vibrator.Cancel()
		require.False(t, vibrator.Running())

		states := motor.snapshot()
		require.Len(t, states, 10)
		require.False(t, states[len(states)-1])

		vibrator.Cancel()
	})
}

// TestVibrator_EmptyPattern rejects an empty pattern.
func TestVibrator_EmptyPattern(t *testing.T) {
	t.Parallel()

	require.Error(t, NewVibrator(new(recordingMotor)).Start(nil, true))
}

// TestDevice covers sound delegation and the missing-player case.
func TestDevice(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		player := new(fakePlayer)
		device := NewDevice(context.Background(), player, new(recordingMotor))

		require.NoError(t, device.PlayLoop("alarm.wav", 1))
		require.NoError(t, device.Vibrate(DefaultPattern, true))
		require.NoError(t, device.Stop())
		require.NoError(t, device.CancelVibration())
		require.Equal(t, []string{"alarm.wav"}, player.played)
		require.Equal(t, 1, player.stopped)

		player.err = errors.New("no device")
		require.ErrorIs(t, device.PlayLoop("alarm.wav", 1), player.err)

		silent := NewDevice(context.Background(), nil, nil)
		require.ErrorIs(t, silent.PlayLoop("alarm.wav", 1), ErrNoSound)
		require.NoError(t, silent.Stop())
	})
}
