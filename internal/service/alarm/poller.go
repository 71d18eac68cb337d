package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	"github.com/oshokin/med-alarm/internal/repository/storage"
)

// DefaultPollInterval is the tick period of the poller. It must stay under a
// minute so that every minute is evaluated.
const DefaultPollInterval = 30 * time.Second

// ErrPollerRunning is returned by Start when the poller is already running.
var ErrPollerRunning = errors.New("poller already running")

// Poller checks the owner's schedule on a fixed tick and fires due alarms.
type Poller struct {
	// store provides the active schedule entries.
	store storage.ScheduleStore
	// matcher decides which entry fires.
	matcher *Matcher
	// interval is the tick period.
	interval time.Duration
	// now defaults to time.Now.
	now func() time.Time
	// state remembers the last evaluated minute.
	state PollState
	// mu guards cancel and done.
	mu sync.Mutex
	// cancel stops the running loop; nil when stopped.
	cancel context.CancelFunc
	// done is closed when the running loop exits.
	done chan struct{}
}

// NewPoller returns a stopped poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(store storage.ScheduleStore, matcher *Matcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		store:    store,
		matcher:  matcher,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins polling the schedule of ownerID in the background. The
// current minute is evaluated immediately.
func (p *Poller) Start(ctx context.Context, ownerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrPollerRunning
	}

	// Set context with logger name and owner for tracking.
	ctx = logger.WithFields(logger.WithName(ctx, "poller"), "owner_id", ownerID)
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go p.loop(ctx, ownerID, p.done)

	logger.InfoKV(ctx, "Alarm poller started", "interval", p.interval.String())

	return nil
}

// Stop cancels polling and waits for an in-flight pass to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context, ownerID string) error {
	if err := p.Start(ctx, ownerID); err != nil {
		return err
	}

	<-ctx.Done()
	p.Stop()

	return nil
}

// Check runs one evaluation pass for now. A minute already evaluated is
// skipped. Entries are evaluated in store order until one fires.
func (p *Poller) Check(ctx context.Context, ownerID string, now time.Time) (bool, error) {
	if !p.state.Mark(MinuteKey(now)) {
		metrics.IncPollTick(metrics.ResultSkipped)

		return false, nil
	}

	entries, err := p.store.QueryActive(ctx, ownerID)
	if err != nil {
		metrics.IncPollTick(metrics.ResultError)

		return false, fmt.Errorf("query active schedules: %w", err)
	}

	for _, entry := range entries {
		fired, err := p.matcher.Evaluate(ctx, entry, now)
		if err != nil {
			metrics.IncPollTick(metrics.ResultError)

			return false, err
		}

		if fired {
			metrics.IncPollTick(metrics.ResultFired)

			return true, nil
		}
	}

	metrics.IncPollTick(metrics.ResultIdle)

	return false, nil
}

func (p *Poller) loop(ctx context.Context, ownerID string, done chan struct{}) {
	defer close(done)

	// Setup polling ticker; the first pass runs without waiting for it.
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Check(ctx, ownerID, p.now()); err != nil {
			logger.ErrorKV(ctx, "Alarm check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Alarm poller stopped")

			return
		case <-ticker.C:
		}
	}
}
