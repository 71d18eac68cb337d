// Package calendar implements the notification platform as an iCalendar feed.
// Every trigger alert becomes a VEVENT with a display VALARM in an .ics file
// that desktop and phone calendars subscribe to, so reminders are delivered
// by the calendar app even when the daemon is not running.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/emersion/go-ical"

	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/platform"
)

const (
	productID     = "-//oshokin//medalarm//EN"
	filePerms     = 0o644
	actionsBuffer = 16
)

// errActionsFull is returned by Emit when nobody drains the action stream.
var errActionsFull = errors.New("action stream is full")

// alert is a registered trigger.
type alert struct {
	notification platform.Notification
	trigger      platform.Trigger
}

// Platform is a platform.Platform backed by an .ics file.
type Platform struct {
	//nolint:containedctx // The context only carries the logger.
	ctx context.Context
	// path is the .ics file rewritten on every trigger change.
	path string
	// now stamps DTSTAMP; replaced in tests.
	now func() time.Time
	// actions carries injected notification actions.
	actions chan platform.Action
	// mu guards the maps below.
	mu sync.Mutex
	// channels are the created channels by id.
	channels map[string]platform.Channel
	// alerts are the registered triggers by notification id.
	alerts map[string]alert
	// displayed are the notifications currently shown.
	displayed map[string]platform.Notification
}

// New returns a platform writing its feed to path.
func New(ctx context.Context, path string) *Platform {
	return &Platform{
		ctx:       logger.WithName(ctx, "calendar"),
		path:      path,
		now:       time.Now,
		actions:   make(chan platform.Action, actionsBuffer),
		channels:  make(map[string]platform.Channel),
		alerts:    make(map[string]alert),
		displayed: make(map[string]platform.Notification),
	}
}

// CreateChannel registers a channel. Creating it again updates it.
func (p *Platform) CreateChannel(_ context.Context, channel platform.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.channels[channel.ID] = channel

	return nil
}

// CreateTriggerAlert adds or replaces the alert with the notification id and
// rewrites the feed. A feed that cannot be written is reported as
// platform.ErrPermissionDenied and the alert is not kept.
func (p *Platform) CreateTriggerAlert(_ context.Context, notification platform.Notification, trigger platform.Trigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, existed := p.alerts[notification.ID]
	p.alerts[notification.ID] = alert{notification: notification, trigger: trigger}

	if err := p.flush(); err != nil {
		if existed {
			p.alerts[notification.ID] = previous
		} else {
			delete(p.alerts, notification.ID)
		}

		return err
	}

	return nil
}

// CancelTriggerAlert removes the alert and rewrites the feed.
func (p *Platform) CancelTriggerAlert(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.alerts[id]; !ok {
		return nil
	}

	delete(p.alerts, id)

	return p.flush()
}

// DisplayNotification shows an immediate notification. The feed has no
// immediate surface, so it is logged and tracked for cancellation.
func (p *Platform) DisplayNotification(_ context.Context, notification platform.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.displayed[notification.ID] = notification

	logger.InfoKV(p.ctx, "Notification displayed",
		"id", notification.ID,
		"title", notification.Title,
		"body", notification.Body)

	return nil
}

// CancelNotification removes a displayed notification.
func (p *Platform) CancelNotification(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.displayed, id)

	return nil
}

// Actions returns the stream of injected actions.
func (p *Platform) Actions() <-chan platform.Action {
	return p.actions
}

// Emit injects a user action, e.g. one received over gRPC.
func (p *Platform) Emit(ctx context.Context, action platform.Action) error {
	select {
	case p.actions <- action:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errActionsFull
	}
}

// AlertIDs returns the registered alert ids in order.
func (p *Platform) AlertIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.alerts))
	for id := range p.alerts {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Displayed reports whether a notification with id is shown.
func (p *Platform) Displayed(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.displayed[id]

	return ok
}

// flush writes the feed atomically. It must be called with mu held.
func (p *Platform) flush() error {
	if len(p.alerts) == 0 {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove calendar feed: %w", platform.ErrPermissionDenied, err)
		}

		return nil
	}

	file, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create calendar feed: %w", platform.ErrPermissionDenied, err)
	}

	tmpName := file.Name()

	defer os.Remove(tmpName) //nolint:errcheck // The file is gone after a successful rename.

	if err = ical.NewEncoder(file).Encode(p.calendar()); err != nil {
		file.Close() //nolint:errcheck,gosec // The encode error is the one to report.

		return fmt.Errorf("encode calendar feed: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("%w: write calendar feed: %w", platform.ErrPermissionDenied, err)
	}

	if err = os.Chmod(tmpName, filePerms); err != nil {
		return fmt.Errorf("%w: chmod calendar feed: %w", platform.ErrPermissionDenied, err)
	}

	if err = os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("%w: replace calendar feed: %w", platform.ErrPermissionDenied, err)
	}

	logger.DebugKV(p.ctx, "Calendar feed written", "path", p.path, "alerts", len(p.alerts))

	return nil
}

func (p *Platform) calendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	ids := make([]string, 0, len(p.alerts))
	for id := range p.alerts {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	stamp := p.now().UTC()

	for _, id := range ids {
		cal.Children = append(cal.Children, p.event(id, p.alerts[id], stamp).Component)
	}

	return cal
}

func (p *Platform) event(id string, a alert, stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, id)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetDateTime(ical.PropDateTimeStart, a.trigger.Timestamp.UTC())
	event.Props.SetText(ical.PropSummary, a.notification.Title)

	if a.notification.Body != "" {
		event.Props.SetText(ical.PropDescription, a.notification.Body)
	}

	if a.trigger.Repeat == platform.RepeatWeekly {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = "FREQ=WEEKLY"
		event.Props.Set(rule)
	}

	reminder := ical.NewComponent(ical.CompAlarm)
	reminder.Props.SetText(ical.PropAction, "DISPLAY")

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = "PT0S"
	reminder.Props.Set(trigger)

	description := a.notification.Body
	if description == "" {
		description = a.notification.Title
	}

	reminder.Props.SetText(ical.PropDescription, description)

	event.Children = append(event.Children, reminder)

	return event
}
