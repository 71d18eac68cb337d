package alarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/dose"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/repository/state"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// monday returns 2026-10-12 (a Monday) at hour:minute UTC.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

func fixedEntry(id, medicationID, clock string, days ...time.Weekday) *schedule.Entry {
	return &schedule.Entry{
		ID:             id,
		OwnerID:        "u1",
		MedicationID:   medicationID,
		MedicationName: "Med " + medicationID,
		Dosage:         "1 pill",
		Kind:           schedule.KindFixed,
		TimeOfDay:      schedule.MustClock(clock),
		Days:           schedule.NewWeekdays(days...),
		Active:         true,
	}
}

// fakeStore serves a fixed schedule.
type fakeStore struct {
	mu      sync.Mutex
	entries []*schedule.Entry
	err     error
	calls   int
}

func (s *fakeStore) QueryActive(_ context.Context, _ string) ([]*schedule.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.entries, nil
}

func (s *fakeStore) queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// fakeLedger is an in-memory dose ledger with the unique occurrence key.
type fakeLedger struct {
	mu        sync.Mutex
	events    []*dose.Event
	existsErr error
	appendErr error
}

func (l *fakeLedger) Exists(_ context.Context, key dose.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.existsErr != nil {
		return false, l.existsErr
	}

	for _, event := range l.events {
		if event.Key() == key {
			return true, nil
		}
	}

	return false, nil
}

func (l *fakeLedger) Append(_ context.Context, event *dose.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.appendErr != nil {
		return l.appendErr
	}

	for _, existing := range l.events {
		if existing.Key() == event.Key() {
			return storage.ErrDuplicateDose
		}
	}

	l.events = append(l.events, event)

	return nil
}

func (l *fakeLedger) ListDay(_ context.Context, ownerID, medicationID, day string) ([]*dose.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []*dose.Event

	for _, event := range l.events {
		if event.OwnerID == ownerID && event.MedicationID == medicationID && event.Day == day {
			result = append(result, event)
		}
	}

	return result, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.events)
}

// fakeActuator tracks whether sound and vibration are on.
type fakeActuator struct {
	mu        sync.Mutex
	playing   bool
	vibrating bool
	plays     int
	playErr   error
}

func (a *fakeActuator) PlayLoop(_ string, _ float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.plays++

	if a.playErr != nil {
		return a.playErr
	}

	a.playing = true

	return nil
}

func (a *fakeActuator) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.playing = false

	return nil
}

func (a *fakeActuator) Vibrate(_ []time.Duration, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.vibrating = true

	return nil
}

func (a *fakeActuator) CancelVibration() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.vibrating = false

	return nil
}

func (a *fakeActuator) outputs() (bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.playing, a.vibrating
}

// fakeNotifier tracks displayed notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	displayed map[string]platform.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{displayed: make(map[string]platform.Notification)}
}

func (n *fakeNotifier) DisplayNotification(_ context.Context, notification platform.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.displayed[notification.ID] = notification

	return nil
}

func (n *fakeNotifier) CancelNotification(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.displayed, id)

	return nil
}

func (n *fakeNotifier) shown(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.displayed[id]

	return ok
}

// memSnapshots keeps the last saved state.
type memSnapshots struct {
	mu    sync.Mutex
	saved *domain.State
	saves int
}

func (s *memSnapshots) Load(_ context.Context) (*domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved == nil {
		return nil, state.ErrNotFound
	}

	return s.saved.Clone(), nil
}

func (s *memSnapshots) Save(_ context.Context, st *domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = st.Clone()
	s.saves++

	return nil
}

func (s *memSnapshots) last() *domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved == nil {
		return nil
	}

	return s.saved.Clone()
}

// harness bundles a machine with its fakes.
type harness struct {
	machine   *Machine
	ledger    *fakeLedger
	actuator  *fakeActuator
	notifier  *fakeNotifier
	snapshots *memSnapshots
}

func newHarness(t *testing.T, now func() time.Time) *harness {
	t.Helper()

	h := &harness{
		ledger:    new(fakeLedger),
		actuator:  new(fakeActuator),
		notifier:  newFakeNotifier(),
		snapshots: new(memSnapshots),
	}

	machine, err := NewMachine(MachineConfig{
		Actuator:  h.actuator,
		Notifier:  h.notifier,
		Ledger:    h.ledger,
		Snapshots: h.snapshots,
		SoundFile: "alarm.wav",
		Now:       now,
	})
	require.NoError(t, err)

	h.machine = machine

	return h
}
