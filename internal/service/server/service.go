package server

import (
	"context"
	"time"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/service/alarm"
	"github.com/oshokin/med-alarm/internal/service/caregiver"
)

// emitter queues actions on the platform's action stream.
type emitter interface {
	Emit(ctx context.Context, action platform.Action) error
}

// reminders is the part of the reminder scheduler the service reports on.
type reminders interface {
	FallbackAvailable() bool
}

// service combines the daemon components behind the transport's Service
// interface. It is unexported to keep the transport decoupled from the
// implementation.
type service struct {
	// ownerID is used when a request names no owner.
	ownerID string
	// machine is the alarm state machine.
	machine *alarm.Machine
	// router handles foreground notification actions.
	router *platform.Router
	// feed receives background notification actions.
	feed emitter
	// evaluator answers caregiver requests.
	evaluator *caregiver.Evaluator
	// reminders reports the fallback path.
	reminders reminders
	// now defaults to time.Now.
	now func() time.Time
}

// State returns the current alarm state.
func (s *service) State() *domain.State {
	return s.machine.State()
}

// FallbackAvailable reports whether platform reminders are registered.
func (s *service) FallbackAvailable() bool {
	return s.reminders.FallbackAvailable()
}

// Acknowledge confirms the ringing alarm from the in-process overlay.
func (s *service) Acknowledge(ctx context.Context, actor *domain.Actor) bool {
	return s.machine.Acknowledge(ctx, actor, dose.SourceAlarm)
}

// HandleAction routes foreground actions synchronously. Background actions
// are queued on the platform stream, the way the platform delivers them
// while the app is not in front.
func (s *service) HandleAction(ctx context.Context, action platform.Action) bool {
	if !action.Background {
		return s.router.Handle(ctx, action)
	}

	if err := s.feed.Emit(ctx, action); err != nil {
		logger.WarnKV(ctx, "Background action dropped", "action_id", action.ID, "error", err)

		return false
	}

	return true
}

// PendingDose evaluates the caregiver window of ownerID.
func (s *service) PendingDose(ctx context.Context, ownerID string) (caregiver.Assessment, error) {
	return s.evaluator.Evaluate(ctx, s.owner(ownerID), s.now())
}

// MarkPendingDose records the pending dose of ownerID on behalf of actor.
func (s *service) MarkPendingDose(ctx context.Context, ownerID string, actor *domain.Actor) (caregiver.Assessment, error) {
	return s.evaluator.MarkTaken(ctx, s.owner(ownerID), actor, s.now())
}

// Subscribe streams alarm state transitions until ctx is done.
func (s *service) Subscribe(ctx context.Context) <-chan *domain.State {
	return s.machine.Subscribe(ctx)
}

func (s *service) owner(ownerID string) string {
	if ownerID == "" {
		return s.ownerID
	}

	return ownerID
}
