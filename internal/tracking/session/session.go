package session

import (
	"context"
	"sync"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
	"github.com/architect/interactive-content/internal/tracking/personality"
	"github.com/architect/interactive-content/internal/tracking/recorder"
	"github.com/architect/interactive-content/internal/tracking/syncer"
	"github.com/architect/interactive-content/internal/tracking/timelimit"
	"go.uber.org/zap"
)

// Session owns all progress and interaction state for one piece of
// embedded content. It is explicitly constructed by the host; there are
// no package-level instances. All mutation goes through its methods.
type Session struct {
	cfg         models.SessionConfig
	endpoint    syncer.Endpoint
	rec         *recorder.Recorder
	scheduler   *syncer.Scheduler
	limiter     *timelimit.Tracker
	capture     personality.CaptureFunc
	accentColor string
	log         *zap.Logger
	now         func() time.Time

	mu            sync.Mutex
	snapshot      models.ProgressSnapshot
	responses     []models.UserResponse
	feedback      []models.AIFeedbackEvent
	startedAt     time.Time
	loadedOnce    bool
	closed        bool
}

type options struct {
	syncInterval   time.Duration
	forceDebounce  time.Duration
	scrollDebounce time.Duration
	historyCap     int
	totalSteps     int
	startTimeStore timelimit.StartTimeStore
	onCountdown    func(remaining time.Duration)
	onExpire       func()
	log            *zap.Logger
	now            func() time.Time
}

// Option configures a Session.
type Option func(*options)

// WithSyncInterval overrides the periodic sync cadence.
func WithSyncInterval(d time.Duration) Option {
	return func(o *options) { o.syncInterval = d }
}

// WithForceDebounce overrides the settle delay for forced syncs.
func WithForceDebounce(d time.Duration) Option {
	return func(o *options) { o.forceDebounce = d }
}

// WithScrollDebounce overrides the scroll event debounce window.
func WithScrollDebounce(d time.Duration) Option {
	return func(o *options) { o.scrollDebounce = d }
}

// WithHistoryCapacity overrides the interaction history bound.
func WithHistoryCapacity(n int) Option {
	return func(o *options) { o.historyCap = n }
}

// WithTotalSteps sets the host's step-count estimate, used until the
// content reports its real total.
func WithTotalSteps(n int) Option {
	return func(o *options) { o.totalSteps = n }
}

// WithStartTimeStore sets where timed sessions persist their start time.
func WithStartTimeStore(store timelimit.StartTimeStore) Option {
	return func(o *options) { o.startTimeStore = store }
}

// WithCountdown registers the per-second countdown callback for timed
// sessions.
func WithCountdown(fn func(remaining time.Duration)) Option {
	return func(o *options) { o.onCountdown = fn }
}

// WithExpireCallback registers the one-shot expiry callback for timed
// sessions, used by the host to surface the expiry message.
func WithExpireCallback(fn func()) Option {
	return func(o *options) { o.onExpire = fn }
}

// WithLogger sets the session's logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithNow injects the time source, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a session for the given content and starts its periodic
// sync loop (and countdown, for timed content). The caller must Close
// the session when the content unloads.
func New(cfg models.SessionConfig, endpoint syncer.Endpoint, opts ...Option) (*Session, error) {
	o := &options{
		syncInterval:   syncer.DefaultInterval,
		forceDebounce:  syncer.DefaultForceDebounce,
		scrollDebounce: recorder.DefaultScrollDebounce,
		historyCap:     recorder.DefaultCapacity,
		totalSteps:     models.DefaultTotalSteps,
		log:            zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.totalSteps < 1 {
		o.totalSteps = models.DefaultTotalSteps
	}

	rec := recorder.New(
		recorder.WithCapacity(o.historyCap),
		recorder.WithScrollDebounce(o.scrollDebounce),
		recorder.WithNow(o.now),
	)

	s := &Session{
		cfg:         cfg,
		endpoint:    endpoint,
		rec:         rec,
		capture:     personality.TagListener(rec.Record, cfg.AdaptationAlgorithm),
		accentColor: personality.AccentColor(cfg.TutorPersonality),
		log:         o.log,
		now:         o.now,
		startedAt:   o.now(),
		snapshot: models.ProgressSnapshot{
			TotalSteps: o.totalSteps,
			Status:     models.StatusStarted,
		},
	}

	s.scheduler = syncer.NewScheduler(endpoint, s.buildPayload,
		syncer.WithInterval(o.syncInterval),
		syncer.WithForceDebounce(o.forceDebounce),
		syncer.WithLogger(o.log),
	)

	if cfg.HasTimeLimit && cfg.TimeLimitMinutes > 0 {
		store := o.startTimeStore
		if store == nil {
			store = timelimit.NewMemoryStore()
		}
		limiter, err := timelimit.NewTracker(cfg, store, endpoint,
			timelimit.WithOnTick(o.onCountdown),
			timelimit.WithOnExpire(o.onExpire),
			timelimit.WithLogger(o.log),
			timelimit.WithNow(o.now),
		)
		if err != nil {
			return nil, err
		}
		s.limiter = limiter
		limiter.Start()
	}

	s.scheduler.Start()
	return s, nil
}

// Config returns the immutable host-supplied configuration.
func (s *Session) Config() models.SessionConfig {
	return s.cfg
}

// AccentColor returns the UI accent derived from the tutor personality.
func (s *Session) AccentColor() string {
	return s.accentColor
}

// UpdateStep moves the session to the given step, optionally updating the
// total. Steps beyond the total are clamped, not rejected: this is
// best-effort UI state with no failure path. Appends a step_change event
// and schedules a forced sync.
func (s *Session) UpdateStep(step, total int) {
	s.mu.Lock()
	if total > 0 {
		s.snapshot.TotalSteps = total
	}
	if step < 0 {
		step = 0
	}
	if step > s.snapshot.TotalSteps {
		step = s.snapshot.TotalSteps
	}
	s.snapshot.CurrentStep = step
	s.recomputeLocked()
	s.touchLocked()

	ev := models.InteractionEvent{
		Type:             models.EventStepChange,
		Timestamp:        s.now(),
		StepAtTime:       s.snapshot.CurrentStep,
		CompletionAtTime: s.snapshot.CompletionPercentage,
	}
	s.mu.Unlock()

	s.capture(ev)
	s.scheduler.ForceUpdate()
}

// MarkCompleted forces the session to its completed state. Idempotent:
// a second call re-emits the completion event but leaves state unchanged.
func (s *Session) MarkCompleted() {
	s.mu.Lock()
	s.snapshot.IsCompleted = true
	s.snapshot.CurrentStep = s.snapshot.TotalSteps
	s.recomputeLocked()
	s.touchLocked()

	ev := models.InteractionEvent{
		Type:             models.EventCompletion,
		Timestamp:        s.now(),
		StepAtTime:       s.snapshot.CurrentStep,
		CompletionAtTime: s.snapshot.CompletionPercentage,
	}
	s.mu.Unlock()

	s.capture(ev)
	s.scheduler.ForceUpdate()
}

// AddUserResponse appends an explicit learner response. Does not touch
// step or completion state.
func (s *Session) AddUserResponse(question, answer, responseType string) {
	if responseType == "" {
		responseType = "text"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses = append(s.responses, models.UserResponse{
		Timestamp:    s.now(),
		Step:         s.snapshot.CurrentStep,
		Question:     question,
		Answer:       answer,
		ResponseType: responseType,
	})
	s.touchLocked()
}

// AddAIFeedback appends tutor feedback to the feedback log.
func (s *Session) AddAIFeedback(feedbackText, feedbackType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = append(s.feedback, models.AIFeedbackEvent{
		Timestamp:        s.now(),
		Step:             s.snapshot.CurrentStep,
		FeedbackText:     feedbackText,
		FeedbackType:     feedbackType,
		TutorPersonality: s.cfg.TutorPersonality,
	})
	s.touchLocked()
}

// RecordInteraction funnels one host UI event into the bounded history.
// Returns whether the event was recorded (scroll may be debounced).
func (s *Session) RecordInteraction(ev models.InteractionEvent) bool {
	s.mu.Lock()
	ev.StepAtTime = s.snapshot.CurrentStep
	ev.CompletionAtTime = s.snapshot.CompletionPercentage
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	s.touchLocked()
	s.mu.Unlock()

	return s.capture(ev)
}

// RecordSubmit records a form submission: a submit interaction event plus
// a UserResponse capturing the submitted fields. Submits are high-value,
// so a forced sync is scheduled.
func (s *Session) RecordSubmit(target *models.TargetDescriptor, fields map[string]string) {
	s.RecordInteraction(models.InteractionEvent{
		Type:   models.EventSubmit,
		Target: target,
	})

	s.mu.Lock()
	step := s.snapshot.CurrentStep
	ts := s.now()
	for name, value := range fields {
		s.responses = append(s.responses, models.UserResponse{
			Timestamp:    ts,
			Step:         step,
			Question:     name,
			Answer:       value,
			ResponseType: "form_submission",
		})
	}
	s.mu.Unlock()

	s.scheduler.ForceUpdate()
}

// ContentLoaded records the embedded content's load event and fires the
// one-shot content-loaded notification. Subsequent calls only record the
// interaction; the notification is sent once.
func (s *Session) ContentLoaded() {
	s.RecordInteraction(models.InteractionEvent{Type: models.EventIframeLoaded})

	s.mu.Lock()
	first := !s.loadedOnce
	s.loadedOnce = true
	loadedAt := s.now()
	s.mu.Unlock()

	if !first {
		return
	}

	notice := models.ContentLoadedNotice{
		ContentID: s.cfg.ContentID,
		CourseID:  s.cfg.CourseID,
		ModuleID:  s.cfg.ModuleID,
		LoadedAt:  loadedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := s.endpoint.NotifyContentLoaded(ctx, notice); err != nil {
			s.log.Warn("content-loaded notification dropped",
				zap.Uint("content_id", s.cfg.ContentID),
				zap.Error(err))
		}
	}()
}

// CurrentProgress returns the current snapshot with time spent
// recomputed. Pure read.
func (s *Session) CurrentProgress() models.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot
	snap.TimeSpentSeconds = int(s.now().Sub(s.startedAt) / time.Second)
	return snap
}

// InteractionHistory returns the retained interaction events in order.
func (s *Session) InteractionHistory() []models.InteractionEvent {
	return s.rec.History()
}

// Analytics returns derived interaction analytics.
func (s *Session) Analytics() models.InteractionAnalytics {
	return s.rec.Analytics()
}

// ForceUpdate schedules an immediate sync, bypassing the periodic
// schedule (after the settle delay).
func (s *Session) ForceUpdate() {
	s.scheduler.ForceUpdate()
}

// TimeRemaining returns the countdown state for timed sessions. The
// second return is false when the session has no time limit.
func (s *Session) TimeRemaining() (time.Duration, bool) {
	if s.limiter == nil {
		return 0, false
	}
	return s.limiter.Remaining(), true
}

// Expired reports whether a timed session has run out its clock.
// Untimed sessions never expire.
func (s *Session) Expired() bool {
	return s.limiter != nil && s.limiter.State() == timelimit.StateExpired
}

// Close tears the session down: countdown and sync loops stop, and one
// final best-effort sync ships the closing snapshot. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.scheduler.Stop()
}

// recomputeLocked re-derives percentage and status from step state.
// Callers hold s.mu.
func (s *Session) recomputeLocked() {
	if s.snapshot.IsCompleted {
		s.snapshot.CompletionPercentage = 100
	} else {
		s.snapshot.CompletionPercentage = models.CompletionPercentage(
			s.snapshot.CurrentStep, s.snapshot.TotalSteps)
	}
	s.snapshot.Status = models.DeriveStatus(
		s.snapshot.CompletionPercentage, s.snapshot.IsCompleted)
}

func (s *Session) touchLocked() {
	s.snapshot.LastInteractionAt = s.now()
}

// buildPayload assembles one full snapshot payload for the scheduler.
func (s *Session) buildPayload() models.SyncPayload {
	s.mu.Lock()
	snap := s.snapshot
	snap.TimeSpentSeconds = int(s.now().Sub(s.startedAt) / time.Second)

	responses := make([]models.UserResponse, len(s.responses))
	copy(responses, s.responses)
	feedback := make([]models.AIFeedbackEvent, len(s.feedback))
	copy(feedback, s.feedback)
	ts := s.now()
	s.mu.Unlock()

	analytics := s.rec.Analytics()

	return models.SyncPayload{
		ContentID:    s.cfg.ContentID,
		CourseID:     s.cfg.CourseID,
		ModuleID:     s.cfg.ModuleID,
		ProgressData: snap,
		InteractionData: models.InteractionBundle{
			InteractionHistory:  s.rec.History(),
			UserResponses:       responses,
			AIFeedback:          feedback,
			TutorPersonality:    s.cfg.TutorPersonality,
			AdaptationAlgorithm: s.cfg.AdaptationAlgorithm,
			TotalInteractions:   analytics.TotalInteractions,
			AvgInteractionTime:  analytics.AverageIntervalMs,
			LearningPattern:     analytics.EngagementLevel,
			Timestamp:           ts,
		},
	}
}
