package platform

import (
	"context"

	"github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/logger"
)

// Payload keys of notification data.
const (
	PayloadHostname   = "hostname"
	PayloadUsername   = "username"
	PayloadOwnerID    = "owner_id"
	PayloadScheduleID = "schedule_id"
	PayloadScheduled  = "scheduled"
)

// Acknowledger confirms the ringing alarm.
type Acknowledger interface {
	Acknowledge(ctx context.Context, actor *alarm.Actor, source dose.Source) bool
}

// Recorder records a dose straight from a reminder payload when no alarm
// is ringing in-process.
type Recorder interface {
	RecordTaken(ctx context.Context, payload map[string]string, actor *alarm.Actor) (bool, error)
}

// Router dispatches platform actions to the alarm state machine.
type Router struct {
	// actions is the platform action stream.
	actions <-chan Action
	// acknowledger receives confirm actions.
	acknowledger Acknowledger
	// recorder handles confirm actions of reminders; may be nil.
	recorder Recorder
}

// NewRouter returns a router reading actions from the platform stream.
func NewRouter(actions <-chan Action, acknowledger Acknowledger, recorder Recorder) *Router {
	return &Router{
		actions:      actions,
		acknowledger: acknowledger,
		recorder:     recorder,
	}
}

// Run handles actions until ctx is done or the action stream closes.
func (r *Router) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "router")

	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-r.actions:
			if !ok {
				return nil
			}

			r.Handle(ctx, action)
		}
	}
}

// Handle processes one action and reports whether it recorded a dose.
// Both foreground and background confirm actions record the dose: the ringing
// alarm is acknowledged, or else the reminder in the payload is recorded.
func (r *Router) Handle(ctx context.Context, action Action) bool {
	switch action.ID {
	case ActionConfirm:
		actor := ActorFromPayload(action.Payload)
		acknowledged := r.acknowledger.Acknowledge(ctx, actor, dose.SourceNotification)

		if !acknowledged && r.recorder != nil && action.Payload[PayloadScheduleID] != "" {
			recorded, err := r.recorder.RecordTaken(ctx, action.Payload, actor)
			if err != nil {
				logger.ErrorKV(ctx, "Failed to record reminder dose",
					"schedule_id", action.Payload[PayloadScheduleID],
					"error", err)
			}

			acknowledged = recorded
		}

		logger.InfoKV(ctx, "Confirm action handled",
			"background", action.Background,
			"actor", actor.String(),
			"recorded", acknowledged)

		return acknowledged
	case ActionDefault:
		logger.DebugKV(ctx, "Notification opened", "background", action.Background)
	default:
		logger.WarnKV(ctx, "Unknown notification action", "action", action.ID)
	}

	return false
}

// ActorFromPayload reads the actor from a notification payload,
// defaulting to the notification itself.
func ActorFromPayload(payload map[string]string) *alarm.Actor {
	actor := &alarm.Actor{
		Hostname: payload[PayloadHostname],
		Username: payload[PayloadUsername],
	}

	if actor.Hostname == "" {
		actor.Hostname = "platform"
	}

	if actor.Username == "" {
		actor.Username = "notification"
	}

	return actor
}
