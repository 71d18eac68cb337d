package alarm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/med-alarm/internal/actuator"
	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/repository/state"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// DefaultSettleDelay is how long the acknowledging phase lasts before idle.
const DefaultSettleDelay = 500 * time.Millisecond

var (
	// ErrAlarmBusy is returned by Fire when an alarm is already active.
	ErrAlarmBusy = errors.New("alarm already active")

	errActuatorRequired = errors.New("actuator must be provided")
	errLedgerRequired   = errors.New("dose ledger must be provided")
)

// Notifier shows and removes immediate platform notifications.
type Notifier interface {
	DisplayNotification(ctx context.Context, notification platform.Notification) error
	CancelNotification(ctx context.Context, id string) error
}

// MachineConfig wires the state machine's collaborators.
type MachineConfig struct {
	// Actuator plays the sound and vibration. Required.
	Actuator actuator.Actuator
	// Guard enforces single ownership of Actuator; a new one when nil.
	Guard *actuator.Guard
	// Notifier shows the ongoing alarm notification; optional.
	Notifier Notifier
	// Ledger records acknowledged doses. Required.
	Ledger storage.DoseLedger
	// Snapshots persists the state across restarts; optional.
	Snapshots state.Repository
	// SoundFile is the looping alarm sound.
	SoundFile string
	// Volume is the sound volume in (0, 1].
	Volume float64
	// SettleDelay defaults to DefaultSettleDelay.
	SettleDelay time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Machine is the single-slot ringing/acknowledgment state machine of a session.
type Machine struct {
	// cfg holds the collaborators with defaults applied.
	cfg MachineConfig
	// mu guards state, release and settle.
	mu sync.Mutex
	// state is the current alarm state.
	state *domain.State
	// release frees the actuator guard; nil when not owned.
	release func()
	// settle moves acknowledging to idle.
	settle *time.Timer
	// subMu guards subscribers and hooks.
	subMu sync.Mutex
	// subscribers receive the latest state.
	subscribers map[chan *domain.State]struct{}
	// hooks run after every acknowledgment settles.
	hooks []func(ctx context.Context)
}

// NewMachine returns an idle machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Actuator == nil {
		return nil, errActuatorRequired
	}

	if cfg.Ledger == nil {
		return nil, errLedgerRequired
	}

	if cfg.Guard == nil {
		cfg.Guard = actuator.NewGuard()
	}

	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}

	if cfg.Volume <= 0 {
		cfg.Volume = 1
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Machine{
		cfg: cfg,
		state: &domain.State{
			Phase: domain.PhaseIdle,
			Since: cfg.Now(),
		},
		subscribers: make(map[chan *domain.State]struct{}),
	}, nil
}

// NotificationID is the id of the ongoing notification of an entry's alarm.
func NotificationID(entry *schedule.Entry) string {
	return "alarm-" + entry.ID
}

// Fire starts ringing for the occurrence of entry at scheduled. It fails with
// ErrAlarmBusy unless the machine is idle. A sound failure is logged and the
// vibration and notification still start.
func (m *Machine) Fire(ctx context.Context, entry *schedule.Entry, scheduled time.Time) error {
	ctx = logger.WithName(ctx, "alarm")

	m.mu.Lock()

	if !m.state.Idle() {
		m.mu.Unlock()

		return ErrAlarmBusy
	}

	release, err := m.cfg.Guard.Acquire()
	if err != nil {
		m.mu.Unlock()

		return fmt.Errorf("acquire actuator: %w", err)
	}

	m.release = release
	m.state = &domain.State{
		Phase:     domain.PhaseRinging,
		Current:   entry.Clone(),
		Scheduled: scheduled,
		Since:     m.cfg.Now(),
		LastActor: m.state.LastActor,
	}

	if err = m.cfg.Actuator.PlayLoop(m.cfg.SoundFile, m.cfg.Volume); err != nil {
		logger.ErrorKV(ctx, "Failed to start alarm sound", "error", err)
	}

	if err = m.cfg.Actuator.Vibrate(actuator.DefaultPattern, true); err != nil {
		logger.ErrorKV(ctx, "Failed to start vibration", "error", err)
	}

	m.transition(ctx)
	m.mu.Unlock()

	if m.cfg.Notifier != nil {
		if err = m.cfg.Notifier.DisplayNotification(ctx, alarmNotification(entry, scheduled)); err != nil {
			logger.ErrorKV(ctx, "Failed to display alarm notification", "error", err)
		}
	}

	metrics.IncAlarmFired(string(entry.EffectiveKind()))

	logger.InfoKV(ctx, "Alarm ringing",
		"schedule_id", entry.ID,
		"medication", entry.MedicationName,
		"dosage", entry.Dosage,
		"scheduled", scheduled.Format(time.RFC3339))

	return nil
}

// Acknowledge confirms the ringing alarm on behalf of actor. Sound and
// vibration stop before the dose is recorded. It reports false, doing
// nothing, when no alarm is ringing. A failed append is logged and the
// machine still returns to idle; an already recorded occurrence counts
// as recorded.
func (m *Machine) Acknowledge(ctx context.Context, actor *domain.Actor, source dose.Source) bool {
	ctx = logger.WithName(ctx, "alarm")

	m.mu.Lock()

	if m.state.Phase != domain.PhaseRinging {
		m.mu.Unlock()

		return false
	}

	entry, scheduled := m.state.Current, m.state.Scheduled
	now := m.cfg.Now()

	m.state = &domain.State{
		Phase:     domain.PhaseAcknowledging,
		Current:   entry,
		Scheduled: scheduled,
		Since:     now,
		LastActor: actor.Clone(),
	}

	m.stopActuator(ctx)
	m.transition(ctx)
	m.mu.Unlock()

	m.record(ctx, dose.NewTaken(entry, scheduled, now, source, actor.String()))

	if m.cfg.Notifier != nil {
		if err := m.cfg.Notifier.CancelNotification(ctx, NotificationID(entry)); err != nil {
			logger.ErrorKV(ctx, "Failed to cancel alarm notification", "error", err)
		}
	}

	settleCtx := context.WithoutCancel(ctx)

	m.mu.Lock()
	m.settle = time.AfterFunc(m.cfg.SettleDelay, func() { m.finishSettle(settleCtx) })
	m.mu.Unlock()

	logger.InfoKV(ctx, "Alarm acknowledged", "schedule_id", entry.ID, "actor", actor.String(), "source", source)

	return true
}

// State returns a copy of the current state.
func (m *Machine) State() *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone()
}

// Subscribe returns a channel receiving the current state and then every
// transition. A slow reader only sees the latest state. The channel is
// closed when ctx is done.
func (m *Machine) Subscribe(ctx context.Context) <-chan *domain.State {
	ch := make(chan *domain.State, 1)

	m.mu.Lock()
	ch <- m.state.Clone()
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	m.mu.Unlock()

	context.AfterFunc(ctx, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()

		delete(m.subscribers, ch)
		close(ch)
	})

	return ch
}

// OnAcknowledged registers hook to run after each acknowledgment settles.
func (m *Machine) OnAcknowledged(hook func(ctx context.Context)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.hooks = append(m.hooks, hook)
}

// Resume re-fires the alarm of the persisted snapshot when it was still
// active for today and the dose has not been recorded since. It reports
// whether the alarm was resumed.
func (m *Machine) Resume(ctx context.Context) (bool, error) {
	if m.cfg.Snapshots == nil {
		return false, nil
	}

	snapshot, err := m.cfg.Snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("load alarm snapshot: %w", err)
	}

	m.mu.Lock()
	m.state.LastActor = snapshot.LastActor.Clone()
	m.mu.Unlock()

	if snapshot.Phase != domain.PhaseRinging || snapshot.Current == nil {
		return false, nil
	}

	if dose.DayOf(snapshot.Scheduled) != dose.DayOf(m.cfg.Now()) {
		logger.InfoKV(ctx, "Discarding alarm snapshot from another day", "schedule_id", snapshot.Current.ID)

		return false, nil
	}

	exists, err := m.cfg.Ledger.Exists(ctx, dose.KeyFor(snapshot.Current, snapshot.Scheduled))
	if err != nil {
		return false, fmt.Errorf("check dose ledger: %w", err)
	}

	if exists {
		return false, nil
	}

	if err = m.Fire(ctx, snapshot.Current, snapshot.Scheduled); err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "Alarm resumed after restart", "schedule_id", snapshot.Current.ID)

	return true, nil
}

// Close stops the actuator and any pending settle timer.
func (m *Machine) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settle != nil {
		m.settle.Stop()
	}

	m.stopActuator(ctx)
}

// stopActuator must be called with mu held.
func (m *Machine) stopActuator(ctx context.Context) {
	if m.release == nil {
		return
	}

	if err := m.cfg.Actuator.Stop(); err != nil {
		logger.ErrorKV(ctx, "Failed to stop alarm sound", "error", err)
	}

	if err := m.cfg.Actuator.CancelVibration(); err != nil {
		logger.ErrorKV(ctx, "Failed to stop vibration", "error", err)
	}

	m.release()
	m.release = nil
}

func (m *Machine) record(ctx context.Context, event *dose.Event) {
	err := m.cfg.Ledger.Append(ctx, event)

	switch {
	case err == nil:
		metrics.IncAcknowledgment(string(event.Source))
	case errors.Is(err, storage.ErrDuplicateDose):
		logger.InfoKV(ctx, "Dose already recorded", "medication_id", event.MedicationID, "day", event.Day)
	default:
		metrics.IncLedgerError("append")
		logger.ErrorKV(ctx, "Failed to record dose", "medication_id", event.MedicationID, "error", err)
	}
}

func (m *Machine) finishSettle(ctx context.Context) {
	m.mu.Lock()

	if m.state.Phase != domain.PhaseAcknowledging {
		m.mu.Unlock()

		return
	}

	m.state = &domain.State{
		Phase:     domain.PhaseIdle,
		Since:     m.cfg.Now(),
		LastActor: m.state.LastActor,
	}
	m.settle = nil

	m.transition(ctx)
	m.mu.Unlock()

	m.subMu.Lock()
	hooks := slices.Clone(m.hooks)
	m.subMu.Unlock()

	for _, hook := range hooks {
		hook(ctx)
	}
}

// transition publishes the new state and persists it. It must be called
// with mu held so subscribers and the snapshot file see transitions in order.
func (m *Machine) transition(ctx context.Context) {
	snapshot := m.state.Clone()

	m.subMu.Lock()

	for ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}

		ch <- snapshot.Clone()
	}

	m.subMu.Unlock()

	if m.cfg.Snapshots == nil {
		return
	}

	if err := m.cfg.Snapshots.Save(ctx, snapshot); err != nil {
		logger.ErrorKV(ctx, "Failed to persist alarm snapshot", "phase", snapshot.Phase, "error", err)
	}
}

func alarmNotification(entry *schedule.Entry, scheduled time.Time) platform.Notification {
	body := entry.TimeOfDay.String()
	if entry.Dosage != "" {
		body = entry.Dosage + " at " + schedule.ClockOf(scheduled).String()
	}

	return platform.Notification{
		ID:        NotificationID(entry),
		ChannelID: platform.AlarmChannelID,
		Title:     "Time to take " + entry.MedicationName,
		Body:      body,
		Ongoing:   true,
		Actions:   []string{platform.ActionConfirm},
		Data: map[string]string{
			platform.PayloadOwnerID:    entry.OwnerID,
			platform.PayloadScheduleID: entry.ID,
			platform.PayloadScheduled:  scheduled.Format(time.RFC3339),
		},
	}
}
