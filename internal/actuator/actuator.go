// Package actuator drives the host's alarm outputs: a looping sound and a
// repeating vibration pattern. Only one alarm may own the outputs at a time.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/med-alarm/internal/logger"
)

// ErrNoSound is returned by PlayLoop when no sound player is configured.
var ErrNoSound = errors.New("no sound player configured")

// DefaultPattern is the alarm vibration: 1s on, 0.5s off, 1s on, 0.5s off.
//
//nolint:gochecknoglobals // Read-only pattern shared by every alarm.
var DefaultPattern = []time.Duration{
	time.Second,
	500 * time.Millisecond,
	time.Second,
	500 * time.Millisecond,
}

// Actuator is the audio/vibration output of the host.
type Actuator interface {
	// PlayLoop starts playing resource in a loop at volume in (0, 1].
	PlayLoop(resource string, volume float64) error
	// Stop halts the sound.
	Stop() error
	// Vibrate runs pattern (alternating on/off durations, starting with on).
	Vibrate(pattern []time.Duration, repeat bool) error
	// CancelVibration halts the vibration.
	CancelVibration() error
}

// Player plays a sound resource in a loop.
type Player interface {
	PlayLoop(resource string, volume float64) error
	Stop() error
}

// Device combines a sound player and a vibration motor into an Actuator.
type Device struct {
	// player is the sound output; nil disables sound.
	player Player
	// vibrator runs vibration patterns.
	vibrator *Vibrator
}

// NewDevice builds an Actuator from player and motor. A nil player makes
// PlayLoop fail with ErrNoSound; a nil motor logs pulses instead.
func NewDevice(ctx context.Context, player Player, motor Motor) *Device {
	if motor == nil {
		motor = NewLogMotor(ctx)
	}

	return &Device{
		player:   player,
		vibrator: NewVibrator(motor),
	}
}

// PlayLoop starts the looping sound.
func (d *Device) PlayLoop(resource string, volume float64) error {
	if d.player == nil {
		return ErrNoSound
	}

	if err := d.player.PlayLoop(resource, volume); err != nil {
		return fmt.Errorf("play %s: %w", resource, err)
	}

	return nil
}

// Stop halts the sound; without a player it does nothing.
func (d *Device) Stop() error {
	if d.player == nil {
		return nil
	}

	return d.player.Stop()
}

// Vibrate starts the vibration pattern.
func (d *Device) Vibrate(pattern []time.Duration, repeat bool) error {
	return d.vibrator.Start(pattern, repeat)
}

// CancelVibration stops the vibration pattern and waits for the motor to turn off.
func (d *Device) CancelVibration() error {
	d.vibrator.Cancel()

	return nil
}

// LogMotor is a Motor for hosts without a vibration device; it logs pulses.
type LogMotor struct {
	//nolint:containedctx // The context only carries the logger.
	ctx context.Context
}

// NewLogMotor returns a motor that logs through the logger in ctx.
func NewLogMotor(ctx context.Context) *LogMotor {
	return &LogMotor{ctx: logger.WithName(ctx, "motor")}
}

// Set logs the motor switching on or off.
func (m *LogMotor) Set(on bool) {
	logger.DebugKV(m.ctx, "Vibration motor", "on", on)
}
