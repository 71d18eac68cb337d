// Package reminder keeps the notification platform's trigger alerts in step
// with the schedule, so reminders are delivered even when the in-process
// poller is not running.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// DefaultRefreshInterval re-syncs one-shot interval triggers and day rollovers.
const DefaultRefreshInterval = 15 * time.Minute

// ConfirmLead is how early a reminder may confirm today's occurrence.
const ConfirmLead = 5 * time.Minute

var (
	errPlatformRequired = errors.New("notification platform must be provided")
	errStoreRequired    = errors.New("schedule store must be provided")
	errLedgerRequired   = errors.New("dose ledger must be provided")
	errBadPayload       = errors.New("reminder payload has no schedule")
	errNotDueToday      = errors.New("schedule is not due today")
	errNotDueYet        = errors.New("occurrence is not due yet")
)

// TriggerPlatform is the part of platform.Platform the scheduler uses.
type TriggerPlatform interface {
	CreateChannel(ctx context.Context, channel platform.Channel) error
	CreateTriggerAlert(ctx context.Context, notification platform.Notification, trigger platform.Trigger) error
	CancelTriggerAlert(ctx context.Context, id string) error
}

// Config wires the scheduler's collaborators.
type Config struct {
	// Store provides the active entries. Required.
	Store storage.ScheduleStore
	// Ledger tells whether today's occurrence is already recorded. Required.
	Ledger storage.DoseLedger
	// Catalog supplies notification text; optional.
	Catalog storage.MedicationCatalog
	// Platform registers the trigger alerts. Required.
	Platform TriggerPlatform
	// RefreshInterval defaults to DefaultRefreshInterval.
	RefreshInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Report is the outcome of the latest sync.
type Report struct {
	// Registered is the number of trigger alerts currently registered.
	Registered int
	// Cancelled is the number of stale alerts removed by the sync.
	Cancelled int
	// Degraded is true when the platform refused to register alerts and
	// the poller is the only delivery path.
	Degraded bool
	// SyncedAt is when the sync finished.
	SyncedAt time.Time
}

// Scheduler registers one trigger alert per upcoming occurrence.
type Scheduler struct {
	// cfg holds the collaborators with defaults applied.
	cfg Config
	// resync requests a sync from Run.
	resync chan struct{}
	// mu guards the fields below and serializes syncs.
	mu sync.Mutex
	// registered are the alert ids of the previous sync.
	registered map[string]struct{}
	// channelReady is set once the alarm channel exists.
	channelReady bool
	// report is the latest sync outcome.
	report Report
}

// trigger is one alert to register.
type trigger struct {
	id           string
	notification platform.Notification
	trigger      platform.Trigger
}

// NewScheduler validates cfg and returns a scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	switch {
	case cfg.Platform == nil:
		return nil, errPlatformRequired
	case cfg.Store == nil:
		return nil, errStoreRequired
	case cfg.Ledger == nil:
		return nil, errLedgerRequired
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		cfg:        cfg,
		resync:     make(chan struct{}, 1),
		registered: make(map[string]struct{}),
	}, nil
}

// TriggerID is the stable alert id of an occurrence.
func TriggerID(entry *schedule.Entry, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", entry.EffectiveKind(), entry.MedicationID, at.Unix())
}

// Sync registers alerts for the next occurrences of ownerID's active entries
// and cancels the ones registered before that are no longer wanted. Running
// it twice without schedule changes registers the same ids.
func (s *Scheduler) Sync(ctx context.Context, ownerID string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureChannel(ctx); err != nil {
		if !errors.Is(err, platform.ErrPermissionDenied) {
			return s.report, err
		}

		return s.degrade(ctx, err), nil
	}

	entries, err := s.cfg.Store.QueryActive(ctx, ownerID)
	if err != nil {
		return s.report, fmt.Errorf("query active schedules: %w", err)
	}

	now := s.cfg.Now()

	var wanted []trigger

	for _, entry := range entries {
		triggers, err := s.triggersFor(ctx, entry, now)
		if err != nil {
			return s.report, err
		}

		wanted = append(wanted, triggers...)
	}

	registered, degraded := s.register(ctx, wanted)
	cancelled := s.cancelStale(ctx, registered)

	s.registered = registered
	s.report = Report{
		Registered: len(registered),
		Cancelled:  cancelled,
		Degraded:   degraded,
		SyncedAt:   s.cfg.Now(),
	}

	metrics.SetReminders(s.report.Registered, s.report.Degraded)

	return s.report, nil
}

// Run syncs at start, after every schedule change, on Resync and on every
// refresh tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context, ownerID string) error {
	// Set context with logger name and owner for tracking.
	ctx = logger.WithFields(logger.WithName(ctx, "reminder"), "owner_id", ownerID)

	// Store changes trigger a sync when the store can report them.
	var changes <-chan struct{}
	if subscriber, ok := s.cfg.Store.(storage.ScheduleSubscriber); ok {
		changes = subscriber.Subscribe(ctx)
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		s.syncAndLog(ctx, ownerID)

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				changes = nil
			}
		case <-s.resync:
		case <-ticker.C:
		}
	}
}

// Resync asks Run for a sync without waiting for it.
func (s *Scheduler) Resync(context.Context) {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

// Report returns the latest sync outcome.
func (s *Scheduler) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.report
}

// FallbackAvailable reports whether platform reminders are registered.
func (s *Scheduler) FallbackAvailable() bool {
	return !s.Report().Degraded
}

// RecordTaken records the dose of a confirmed reminder when no alarm was
// ringing. Weekly alerts repeat one payload, so the occurrence is derived
// from the entry and the current time. It reports false when the dose was
// already recorded.
func (s *Scheduler) RecordTaken(ctx context.Context, payload map[string]string, actor *domain.Actor) (bool, error) {
	ownerID, scheduleID := payload[platform.PayloadOwnerID], payload[platform.PayloadScheduleID]
	if ownerID == "" || scheduleID == "" {
		return false, errBadPayload
	}

	entries, err := s.cfg.Store.QueryActive(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("query active schedules: %w", err)
	}

	index := slices.IndexFunc(entries, func(e *schedule.Entry) bool { return e.ID == scheduleID })
	if index < 0 {
		return false, fmt.Errorf("schedule %s: %w", scheduleID, storage.ErrNotFound)
	}

	entry, now := entries[index], s.cfg.Now()

	scheduled, ok := currentOccurrence(entry, now)
	if !ok {
		return false, fmt.Errorf("schedule %s: %w", scheduleID, errNotDueToday)
	}

	// A stale reminder confirmed before today's time must not settle today's dose.
	if scheduled.After(now.Add(ConfirmLead)) {
		return false, fmt.Errorf("schedule %s at %s: %w", scheduleID, schedule.ClockOf(scheduled), errNotDueYet)
	}

	err = s.cfg.Ledger.Append(ctx, dose.NewTaken(entry, scheduled, now, dose.SourceNotification, actor.String()))

	switch {
	case err == nil:
		metrics.IncAcknowledgment(string(dose.SourceNotification))
		s.Resync(ctx)

		return true, nil
	case errors.Is(err, storage.ErrDuplicateDose):
		return false, nil
	default:
		metrics.IncLedgerError("append")

		return false, fmt.Errorf("record dose: %w", err)
	}
}

func (s *Scheduler) syncAndLog(ctx context.Context, ownerID string) {
	report, err := s.Sync(ctx, ownerID)
	if err != nil {
		logger.ErrorKV(ctx, "Reminder sync failed", "error", err)

		return
	}

	logger.InfoKV(ctx, "Reminders synced",
		"registered", report.Registered,
		"cancelled", report.Cancelled,
		"degraded", report.Degraded)
}

// ensureChannel must be called with mu held.
func (s *Scheduler) ensureChannel(ctx context.Context) error {
	if s.channelReady {
		return nil
	}

	if err := s.cfg.Platform.CreateChannel(ctx, platform.AlarmChannel()); err != nil {
		return fmt.Errorf("create alarm channel: %w", err)
	}

	s.channelReady = true

	return nil
}

// degrade must be called with mu held.
func (s *Scheduler) degrade(ctx context.Context, err error) Report {
	logger.WarnKV(ctx, "Platform refused reminders, poller is the only delivery path", "error", err)

	s.report = Report{
		Registered: len(s.registered),
		Degraded:   true,
		SyncedAt:   s.cfg.Now(),
	}

	metrics.SetReminders(s.report.Registered, true)

	return s.report
}

// register creates the wanted alerts and stops at the first permission refusal.
func (s *Scheduler) register(ctx context.Context, wanted []trigger) (map[string]struct{}, bool) {
	registered := make(map[string]struct{}, len(wanted))

	for _, t := range wanted {
		err := s.cfg.Platform.CreateTriggerAlert(ctx, t.notification, t.trigger)

		switch {
		case err == nil:
			registered[t.id] = struct{}{}
		case errors.Is(err, platform.ErrPermissionDenied):
			logger.WarnKV(ctx, "Platform refused reminders, poller is the only delivery path", "error", err)

			return registered, true
		default:
			logger.ErrorKV(ctx, "Failed to register reminder", "id", t.id, "error", err)
		}
	}

	return registered, false
}

// cancelStale removes alerts of the previous sync missing from registered.
// An alert that fails to cancel stays tracked for the next sync.
func (s *Scheduler) cancelStale(ctx context.Context, registered map[string]struct{}) int {
	cancelled := 0

	for id := range s.registered {
		if _, ok := registered[id]; ok {
			continue
		}

		if err := s.cfg.Platform.CancelTriggerAlert(ctx, id); err != nil {
			logger.ErrorKV(ctx, "Failed to cancel stale reminder", "id", id, "error", err)

			registered[id] = struct{}{}

			continue
		}

		cancelled++
	}

	return cancelled
}

// triggersFor returns the alerts of one entry. A fixed entry gets one weekly
// alert per weekday; an occurrence today that is already recorded moves to
// next week. An interval entry gets a one-shot alert for its next slot.
func (s *Scheduler) triggersFor(ctx context.Context, entry *schedule.Entry, now time.Time) ([]trigger, error) {
	switch entry.EffectiveKind() {
	case schedule.KindFixed:
		var result []trigger

		for _, code := range entry.Days.Codes() {
			day, err := schedule.ParseWeekday(code)
			if err != nil {
				return nil, err
			}

			single := entry.Clone()
			single.Days = schedule.NewWeekdays(day)

			at, ok := schedule.NextOccurrence(single, now)
			if !ok {
				continue
			}

			recorded, err := s.recorded(ctx, entry, at, now)
			if err != nil {
				return nil, err
			}

			if recorded {
				at, _ = schedule.NextOccurrenceAfterToday(single, now)
			}

			result = append(result, s.newTrigger(ctx, entry, at, platform.RepeatWeekly))
		}

		return result, nil
	case schedule.KindInterval:
		at, ok := schedule.NextIntervalSlot(entry, now)
		if !ok {
			return nil, nil
		}

		recorded, err := s.recorded(ctx, entry, at, now)
		if err != nil || recorded {
			return nil, err
		}

		return []trigger{s.newTrigger(ctx, entry, at, platform.RepeatNone)}, nil
	default:
		return nil, nil
	}
}

// recorded reports whether the occurrence at is today's and already in the ledger.
func (s *Scheduler) recorded(ctx context.Context, entry *schedule.Entry, at, now time.Time) (bool, error) {
	if dose.DayOf(at) != dose.DayOf(now) {
		return false, nil
	}

	exists, err := s.cfg.Ledger.Exists(ctx, dose.KeyFor(entry, at))
	if err != nil {
		metrics.IncLedgerError("exists")

		return false, fmt.Errorf("check dose ledger: %w", err)
	}

	return exists, nil
}

func (s *Scheduler) newTrigger(ctx context.Context, entry *schedule.Entry, at time.Time, repeat platform.Repeat) trigger {
	name, dosage := entry.MedicationName, entry.Dosage

	if s.cfg.Catalog != nil {
		medication, err := s.cfg.Catalog.Get(ctx, entry.MedicationID)

		switch {
		case err == nil:
			name = medication.Name

			if dosage == "" {
				dosage = medication.DefaultDosage
			}
		case !errors.Is(err, storage.ErrNotFound):
			logger.WarnKV(ctx, "Medication lookup failed", "medication_id", entry.MedicationID, "error", err)
		}
	}

	body := "Scheduled for " + schedule.ClockOf(at).String()
	if dosage != "" {
		body = dosage + " at " + schedule.ClockOf(at).String()
	}

	id := TriggerID(entry, at)

	return trigger{
		id: id,
		notification: platform.Notification{
			ID:        id,
			ChannelID: platform.AlarmChannelID,
			Title:     "Time to take " + name,
			Body:      body,
			Actions:   []string{platform.ActionConfirm},
			Data: map[string]string{
				platform.PayloadOwnerID:    entry.OwnerID,
				platform.PayloadScheduleID: entry.ID,
				platform.PayloadScheduled:  at.Format(time.RFC3339),
			},
		},
		trigger: platform.Trigger{
			Timestamp: at,
			Repeat:    repeat,
		},
	}
}

// currentOccurrence returns the occurrence a reminder confirmed at now belongs to.
func currentOccurrence(entry *schedule.Entry, now time.Time) (time.Time, bool) {
	switch entry.EffectiveKind() {
	case schedule.KindFixed:
		if !entry.Days.Has(now.Weekday()) {
			return time.Time{}, false
		}

		return entry.TimeOfDay.On(now), true
	case schedule.KindInterval:
		return schedule.IntervalSlot(entry, now)
	default:
		return time.Time{}, false
	}
}
