package alarm

import (
	"fmt"
	"time"

	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// Phase is the step of the ringing/acknowledgment cycle.
type Phase string

const (
	// PhaseIdle means no alarm is active.
	PhaseIdle Phase = "idle"
	// PhaseRinging means an alarm is sounding and waits for acknowledgment.
	PhaseRinging Phase = "ringing"
	// PhaseAcknowledging means the alarm was confirmed and is settling.
	PhaseAcknowledging Phase = "acknowledging"
)

// Actor identifies who performed an action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as "user@host".
func (a *Actor) String() string {
	if a == nil {
		return ""
	}

	return fmt.Sprintf("%s@%s", a.Username, a.Hostname)
}

// State is the single-slot alarm status of one session.
type State struct {
	// Phase is the current step of the cycle.
	Phase Phase
	// Current is the ringing or settling entry; nil when idle.
	Current *schedule.Entry
	// Scheduled is the occurrence instant Current fired for.
	Scheduled time.Time
	// Since is when Phase was entered.
	Since time.Time
	// LastActor is who acknowledged the latest alarm.
	LastActor *Actor
}

// Idle reports whether no alarm is active.
func (s *State) Idle() bool {
	return s.Phase == PhaseIdle || s.Phase == ""
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	return &State{
		Phase:     s.Phase,
		Current:   s.Current.Clone(),
		Scheduled: s.Scheduled,
		Since:     s.Since,
		LastActor: s.LastActor.Clone(),
	}
}
