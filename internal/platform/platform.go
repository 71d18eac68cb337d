// Package platform declares the notification platform the alarm engine
// depends on: channels, timestamp-triggered alerts, immediate notifications
// and the actions a user takes on them.
package platform

import (
	"context"
	"errors"
	"time"
)

// ActionConfirm is the notification action that records a dose as taken.
const ActionConfirm = "confirm"

// ActionDefault is the action fired by tapping the notification body.
const ActionDefault = "default"

// ErrPermissionDenied is returned when the platform declines to register
// background alerts. The poller stays the only delivery path.
var ErrPermissionDenied = errors.New("platform permission denied")

// Importance orders how intrusive a channel is.
type Importance int

const (
	// ImportanceDefault is an ordinary notification.
	ImportanceDefault Importance = iota
	// ImportanceHigh shows a heads-up or full-screen alert.
	ImportanceHigh
)

// Channel groups notifications that share sound and priority settings.
type Channel struct {
	// ID is the stable channel identifier.
	ID string
	// Name is shown in system settings.
	Name string
	// Importance of notifications posted to the channel.
	Importance Importance
	// Sound is the sound resource name; empty for silent.
	Sound string
	// Vibration enables the vibration pattern.
	Vibration bool
	// BypassDND lets alarms through do-not-disturb.
	BypassDND bool
}

// Notification is the payload of an immediate or triggered alert.
type Notification struct {
	// ID identifies the notification so it can be cancelled.
	ID string
	// ChannelID selects a channel created with CreateChannel.
	ChannelID string
	// Title is the headline.
	Title string
	// Body is the detail text.
	Body string
	// Ongoing notifications cannot be swiped away.
	Ongoing bool
	// Actions lists the action ids offered as buttons.
	Actions []string
	// Data is echoed back in Action.Payload.
	Data map[string]string
}

// Repeat is the recurrence of a trigger.
type Repeat int

const (
	// RepeatNone fires once.
	RepeatNone Repeat = iota
	// RepeatWeekly fires at the same weekday and time every week.
	RepeatWeekly
)

// Trigger schedules a notification.
type Trigger struct {
	// Timestamp is the first firing instant.
	Timestamp time.Time
	// Repeat is the recurrence after Timestamp.
	Repeat Repeat
}

// Action is a user interaction with a notification.
type Action struct {
	// ID is the pressed action id, e.g. ActionConfirm.
	ID string
	// Background is true when the host app was not in the foreground.
	Background bool
	// Payload is the notification's Data.
	Payload map[string]string
}

// Platform is the always-on notification service outside the daemon process.
type Platform interface {
	CreateChannel(ctx context.Context, channel Channel) error
	CreateTriggerAlert(ctx context.Context, notification Notification, trigger Trigger) error
	CancelTriggerAlert(ctx context.Context, id string) error
	DisplayNotification(ctx context.Context, notification Notification) error
	CancelNotification(ctx context.Context, id string) error
	// Actions delivers onForegroundAction and onBackgroundAction events.
	Actions() <-chan Action
}

// AlarmChannelID is the channel of alarm and reminder notifications.
const AlarmChannelID = "medication-alarm"

// AlarmChannel returns the high-priority channel used for medication alarms.
func AlarmChannel() Channel {
	return Channel{
		ID:         AlarmChannelID,
		Name:       "Medication alarms",
		Importance: ImportanceHigh,
		Sound:      "alarm",
		Vibration:  true,
		BypassDND:  true,
	}
}
