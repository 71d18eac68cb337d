package actuator

import (
	"errors"
	"sync"
	"time"
)

var errEmptyPattern = errors.New("vibration pattern is empty")

// Motor switches a vibration device.
type Motor interface {
	Set(on bool)
}

// Vibrator plays on/off patterns on a Motor in a background goroutine.
type Vibrator struct {
	// motor is the driven device.
	motor Motor
	// mu guards stop and done.
	mu sync.Mutex
	// stop is closed to end the running pattern; nil when idle.
	stop chan struct{}
	// done is closed when the pattern goroutine has exited.
	done chan struct{}
}

// NewVibrator returns an idle vibrator for motor.
func NewVibrator(motor Motor) *Vibrator {
	return &Vibrator{motor: motor}
}

// Start runs pattern, replacing any pattern already running.
// Even indices are "on" durations, odd indices are "off".
func (v *Vibrator) Start(pattern []time.Duration, repeat bool) error {
	if len(pattern) == 0 {
		return errEmptyPattern
	}

	v.Cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	steps := append([]time.Duration(nil), pattern...)
	v.stop = make(chan struct{})
	v.done = make(chan struct{})

	go v.run(steps, repeat, v.stop, v.done)

	return nil
}

// Cancel stops the running pattern and waits until the motor is off.
func (v *Vibrator) Cancel() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop, v.done = nil, nil
	v.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

// Running reports whether a pattern is active.
func (v *Vibrator) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.done == nil {
		return false
	}

	select {
	case <-v.done:
		return false
	default:
		return true
	}
}

func (v *Vibrator) run(pattern []time.Duration, repeat bool, stop, done chan struct{}) {
	defer close(done)
	defer v.motor.Set(false)

	timer := time.NewTimer(0)
	defer timer.Stop()

	<-timer.C

	for {
		for i, step := range pattern {
			v.motor.Set(i%2 == 0)
			timer.Reset(step)

			select {
			case <-stop:
				return
			case <-timer.C:
			}
		}

		if !repeat {
			return
		}
	}
}
