package timelimit

import (
	"context"
	"sync"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
	"github.com/architect/interactive-content/internal/tracking/syncer"
	"go.uber.org/zap"
)

// State is the tracker lifecycle. The transition is one-way: once a
// session expires it never returns to Running.
type State string

const (
	StateRunning State = "running"
	StateExpired State = "expired"
)

// tickInterval is the countdown resolution.
const tickInterval = time.Second

// Tracker enforces a session time limit: it resumes a persisted start
// time if one exists, ticks a countdown every second, and fires a
// one-shot expiry notification when the clock runs out. Expiry does not
// end the session; interaction and progress sync continue.
type Tracker struct {
	cfg      models.SessionConfig
	store    StartTimeStore
	endpoint syncer.Endpoint
	limit    time.Duration
	log      *zap.Logger

	onTick   func(remaining time.Duration)
	onExpire func()

	mu        sync.Mutex
	startTime time.Time
	expired   bool
	started   bool
	stopped   bool
	stopCh    chan struct{}

	now func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithOnTick registers the countdown callback, invoked once per tick
// while the tracker is running.
func WithOnTick(fn func(remaining time.Duration)) TrackerOption {
	return func(t *Tracker) { t.onTick = fn }
}

// WithOnExpire registers the expiry callback, invoked exactly once.
func WithOnExpire(fn func()) TrackerOption {
	return func(t *Tracker) { t.onExpire = fn }
}

// WithLogger sets the tracker's logger.
func WithLogger(log *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.log = log }
}

// WithNow injects the time source, for tests.
func WithNow(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker for a timed session. If the store holds a
// prior start time for this content the original deadline is resumed;
// otherwise the current time is recorded as the start.
func NewTracker(cfg models.SessionConfig, store StartTimeStore, endpoint syncer.Endpoint, opts ...TrackerOption) (*Tracker, error) {
	t := &Tracker{
		cfg:      cfg,
		store:    store,
		endpoint: endpoint,
		limit:    time.Duration(cfg.TimeLimitMinutes) * time.Minute,
		log:      zap.NewNop(),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start, found, err := store.Get(ctx, cfg.ContentID)
	if err != nil {
		return nil, err
	}
	if !found {
		start = t.now()
		if err := store.Put(ctx, cfg.ContentID, start); err != nil {
			return nil, err
		}
	}
	t.startTime = start

	return t, nil
}

// Start launches the 1-second countdown loop.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.tick()
			case <-t.stopCh:
				return
			}
		}
	}()
}

// Stop cancels the countdown loop. It does not clear the persisted start
// time; a reload within the storage scope still resumes the deadline.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}

// tick recomputes the remaining time and drives the expiry transition.
// Safe to call repeatedly after expiry; the notification fires only once.
func (t *Tracker) tick() {
	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return
	}

	remaining := t.remainingLocked()
	if remaining > 0 {
		onTick := t.onTick
		t.mu.Unlock()
		if onTick != nil {
			onTick(remaining)
		}
		return
	}

	t.expired = true
	onExpire := t.onExpire
	expiredAt := t.now()
	t.mu.Unlock()

	notice := models.TimeExpiredNotice{
		ContentID: t.cfg.ContentID,
		CourseID:  t.cfg.CourseID,
		ModuleID:  t.cfg.ModuleID,
		ExpiredAt: expiredAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := t.endpoint.NotifyTimeExpired(ctx, notice); err != nil {
			t.log.Warn("time-expired notification dropped",
				zap.Uint("content_id", t.cfg.ContentID),
				zap.Error(err))
		}
	}()

	if onExpire != nil {
		onExpire()
	}
}

func (t *Tracker) remainingLocked() time.Duration {
	remaining := t.limit - t.now().Sub(t.startTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Remaining returns the time left on the clock, zero once expired.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.expired {
		return 0
	}
	return t.remainingLocked()
}

// State reports whether the session clock has run out.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.expired {
		return StateExpired
	}
	return StateRunning
}

// StartTime returns the (possibly resumed) session start time.
func (t *Tracker) StartTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startTime
}
