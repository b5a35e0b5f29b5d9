package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the fixed periodic sync cadence. No backoff:
	// a failed tick is superseded by the next one.
	DefaultInterval = 5 * time.Second

	// DefaultForceDebounce delays a forced sync slightly so state from a
	// burst of high-value events settles into one payload.
	DefaultForceDebounce = time.Second

	// finalSyncTimeout bounds the best-effort sync attempted on Stop.
	finalSyncTimeout = 2 * time.Second
)

// PayloadFunc builds the current full snapshot payload for one tick.
type PayloadFunc func() models.SyncPayload

// Scheduler ships progress payloads on a fixed interval, with a debounced
// force path for high-value events. Every send is fire-and-forget:
// overlapping requests are allowed and last-response-wins, since every
// payload is a full snapshot.
type Scheduler struct {
	endpoint Endpoint
	payload  PayloadFunc
	interval time.Duration
	debounce time.Duration
	log      *zap.Logger

	mu         sync.Mutex
	forceTimer *time.Timer
	started    bool
	stopped    bool
	stopCh     chan struct{}
	loopDone   chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval overrides the periodic cadence.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithForceDebounce overrides the force-sync settle delay.
func WithForceDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the logger used for dropped-sync reporting.
func WithLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// NewScheduler creates a stopped Scheduler; call Start to begin ticking.
func NewScheduler(endpoint Endpoint, payload PayloadFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		endpoint: endpoint,
		payload:  payload,
		interval: DefaultInterval,
		debounce: DefaultForceDebounce,
		log:      zap.NewNop(),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Fire-and-forget: a slow endpoint must not stall the loop.
			go s.syncOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// ForceUpdate schedules an immediate out-of-band sync after the settle
// delay. Repeated calls inside the window coalesce into one send.
func (s *Scheduler) ForceUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.forceTimer != nil {
		return
	}
	s.forceTimer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.forceTimer = nil
		s.mu.Unlock()
		s.syncOnce(context.Background())
	})
}

// Stop cancels the tick loop and any pending forced sync, then makes one
// final best-effort attempt to ship the closing snapshot. Delivery is not
// guaranteed; a timeout or failure is logged and accepted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.forceTimer != nil {
		s.forceTimer.Stop()
		s.forceTimer = nil
	}
	started := s.started
	close(s.stopCh)
	s.mu.Unlock()

	if started {
		<-s.loopDone
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalSyncTimeout)
	defer cancel()
	s.syncOnce(ctx)
}

// syncOnce builds and ships one full payload. Failures are logged and
// dropped; the next tick carries superseding state.
func (s *Scheduler) syncOnce(ctx context.Context) {
	payload := s.payload()
	if _, err := s.endpoint.SyncProgress(ctx, payload); err != nil {
		s.log.Warn("progress sync dropped",
			zap.Uint("content_id", payload.ContentID),
			zap.Error(err))
	}
}
