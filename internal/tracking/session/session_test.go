package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryEndpoint collects everything the session ships.
type memoryEndpoint struct {
	mu       sync.Mutex
	payloads []models.SyncPayload
	loaded   []models.ContentLoadedNotice
	expired  []models.TimeExpiredNotice
}

func (e *memoryEndpoint) SyncProgress(ctx context.Context, payload models.SyncPayload) (*models.SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, payload)
	return &models.SyncResult{Success: true}, nil
}

func (e *memoryEndpoint) NotifyContentLoaded(ctx context.Context, notice models.ContentLoadedNotice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = append(e.loaded, notice)
	return nil
}

func (e *memoryEndpoint) NotifyTimeExpired(ctx context.Context, notice models.TimeExpiredNotice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, notice)
	return nil
}

func (e *memoryEndpoint) syncCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.payloads)
}

func (e *memoryEndpoint) lastPayload() models.SyncPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payloads[len(e.payloads)-1]
}

func (e *memoryEndpoint) loadedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loaded)
}

func newTestSession(t *testing.T, cfg models.SessionConfig, opts ...Option) (*Session, *memoryEndpoint) {
	t.Helper()
	endpoint := &memoryEndpoint{}

	base := []Option{
		WithSyncInterval(time.Hour), // keep the periodic path quiet
		WithForceDebounce(5 * time.Millisecond),
	}
	s, err := New(cfg, endpoint, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, endpoint
}

func TestUpdateStep_PercentageMath(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	cases := []struct {
		step, total, want int
	}{
		{0, 10, 0},
		{1, 10, 10},
		{3, 10, 30},
		{1, 3, 33},
		{2, 3, 66},
		{10, 10, 100},
	}
	for _, tc := range cases {
		s.UpdateStep(tc.step, tc.total)
		snap := s.CurrentProgress()
		assert.Equal(t, tc.want, snap.CompletionPercentage,
			"step %d of %d", tc.step, tc.total)
	}
}

func TestUpdateStep_OverflowClampsInsteadOfFailing(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	s.UpdateStep(15, 10)

	snap := s.CurrentProgress()
	assert.Equal(t, 10, snap.CurrentStep)
	assert.Equal(t, 100, snap.CompletionPercentage)
	assert.False(t, snap.IsCompleted, "clamping must not imply completion")
}

func TestUpdateStep_MissingTotalDefaults(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	// Host never supplied a total; the estimate of 10 is in effect.
	s.UpdateStep(5, 0)

	snap := s.CurrentProgress()
	assert.Equal(t, models.DefaultTotalSteps, snap.TotalSteps)
	assert.Equal(t, 50, snap.CompletionPercentage)
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	s.UpdateStep(4, 10)
	s.MarkCompleted()

	first := s.CurrentProgress()
	assert.True(t, first.IsCompleted)
	assert.Equal(t, 100, first.CompletionPercentage)
	assert.Equal(t, 10, first.CurrentStep)
	assert.Equal(t, models.StatusCompleted, first.Status)

	s.MarkCompleted()
	second := s.CurrentProgress()
	assert.Equal(t, first.CurrentStep, second.CurrentStep)
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)
	assert.Equal(t, first.Status, second.Status)
}

func TestSession_CompletionScenario(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 42})

	s.UpdateStep(3, 10)
	s.UpdateStep(10, 10)
	s.MarkCompleted()

	snap := s.CurrentProgress()
	assert.Equal(t, 10, snap.CurrentStep)
	assert.Equal(t, 10, snap.TotalSteps)
	assert.Equal(t, 100, snap.CompletionPercentage)
	assert.True(t, snap.IsCompleted)
	assert.Equal(t, models.StatusCompleted, snap.Status)
}

func TestSession_StatusTransitions(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	assert.Equal(t, models.StatusStarted, s.CurrentProgress().Status)

	s.UpdateStep(1, 10)
	assert.Equal(t, models.StatusInProgress, s.CurrentProgress().Status)

	s.MarkCompleted()
	assert.Equal(t, models.StatusCompleted, s.CurrentProgress().Status)
}

func TestSession_InteractionsCarryStepContext(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	s.UpdateStep(3, 10)
	s.RecordInteraction(models.InteractionEvent{Type: models.EventClick})

	history := s.InteractionHistory()
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, models.EventClick, last.Type)
	assert.Equal(t, 3, last.StepAtTime)
	assert.Equal(t, 30, last.CompletionAtTime)
}

func TestRecordSubmit_CapturesFormFields(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	s.UpdateStep(2, 10)
	s.RecordSubmit(&models.TargetDescriptor{Kind: "form", ID: "quiz"}, map[string]string{
		"answer": "42",
	})

	payload := s.buildPayload()
	require.Len(t, payload.InteractionData.UserResponses, 1)
	resp := payload.InteractionData.UserResponses[0]
	assert.Equal(t, "answer", resp.Question)
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, "form_submission", resp.ResponseType)
	assert.Equal(t, 2, resp.Step)
}

func TestAddUserResponse_DoesNotTouchProgress(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 1})

	s.UpdateStep(3, 10)
	before := s.CurrentProgress()

	s.AddUserResponse("what is 2+2", "4", "")

	after := s.CurrentProgress()
	assert.Equal(t, before.CurrentStep, after.CurrentStep)
	assert.Equal(t, before.CompletionPercentage, after.CompletionPercentage)

	payload := s.buildPayload()
	require.Len(t, payload.InteractionData.UserResponses, 1)
	assert.Equal(t, "text", payload.InteractionData.UserResponses[0].ResponseType)
}

func TestAddAIFeedback_TagsPersonality(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{
		ContentID:        1,
		TutorPersonality: "friendly",
	})

	s.AddAIFeedback("nice work", "praise")

	payload := s.buildPayload()
	require.Len(t, payload.InteractionData.AIFeedback, 1)
	assert.Equal(t, "friendly", payload.InteractionData.AIFeedback[0].TutorPersonality)
	assert.Equal(t, "#28a745", s.AccentColor())
}

func TestForceUpdate_CoalescesWithinDebounce(t *testing.T) {
	s, endpoint := newTestSession(t, models.SessionConfig{ContentID: 1},
		WithForceDebounce(40*time.Millisecond))

	s.ForceUpdate()
	s.ForceUpdate()

	assert.Eventually(t, func() bool {
		return endpoint.syncCount() == 1
	}, time.Second, 10*time.Millisecond)

	// No second sync arrives after the window.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, endpoint.syncCount())
}

func TestPayload_CarriesFullBundle(t *testing.T) {
	s, endpoint := newTestSession(t, models.SessionConfig{
		ContentID:           42,
		CourseID:            7,
		ModuleID:            3,
		TutorPersonality:    "encouraging",
		AdaptationAlgorithm: "spaced_repetition",
	})

	s.UpdateStep(5, 10)
	s.RecordInteraction(models.InteractionEvent{Type: models.EventClick})
	s.AddUserResponse("q", "a", "choice")
	s.AddAIFeedback("keep going", "hint")
	s.ForceUpdate()

	assert.Eventually(t, func() bool {
		return endpoint.syncCount() >= 1
	}, time.Second, 10*time.Millisecond)

	payload := endpoint.lastPayload()
	assert.Equal(t, uint(42), payload.ContentID)
	assert.Equal(t, uint(7), payload.CourseID)
	assert.Equal(t, uint(3), payload.ModuleID)
	assert.Equal(t, 50, payload.ProgressData.CompletionPercentage)
	assert.Equal(t, "encouraging", payload.InteractionData.TutorPersonality)
	assert.Equal(t, "spaced_repetition", payload.InteractionData.AdaptationAlgorithm)
	assert.NotEmpty(t, payload.InteractionData.InteractionHistory)
	assert.Len(t, payload.InteractionData.UserResponses, 1)
	assert.Len(t, payload.InteractionData.AIFeedback, 1)

	// Every interaction is tagged for the adaptation backend.
	for _, ev := range payload.InteractionData.InteractionHistory {
		assert.Equal(t, "spaced_repetition", ev.AdaptationTag)
	}
}

func TestContentLoaded_NotifiesOnce(t *testing.T) {
	s, endpoint := newTestSession(t, models.SessionConfig{ContentID: 42})

	s.ContentLoaded()
	s.ContentLoaded()

	assert.Eventually(t, func() bool {
		return endpoint.loadedCount() == 1
	}, time.Second, 10*time.Millisecond)

	// Both loads still land in the interaction history.
	loads := 0
	for _, ev := range s.InteractionHistory() {
		if ev.Type == models.EventIframeLoaded {
			loads++
		}
	}
	assert.Equal(t, 2, loads)
}

func TestClose_ShipsFinalSnapshot(t *testing.T) {
	endpoint := &memoryEndpoint{}
	s, err := New(models.SessionConfig{ContentID: 42}, endpoint,
		WithSyncInterval(time.Hour))
	require.NoError(t, err)

	s.UpdateStep(10, 10)
	s.MarkCompleted()
	s.Close()

	require.GreaterOrEqual(t, endpoint.syncCount(), 1)
	final := endpoint.lastPayload()
	assert.True(t, final.ProgressData.IsCompleted)
	assert.Equal(t, models.StatusCompleted, final.ProgressData.Status)

	// Close is idempotent.
	count := endpoint.syncCount()
	s.Close()
	assert.Equal(t, count, endpoint.syncCount())
}

func TestTimedSession_SurfacesCountdownAndExpiry(t *testing.T) {
	var expirations int
	var mu sync.Mutex

	s, _ := newTestSession(t, models.SessionConfig{
		ContentID:        42,
		HasTimeLimit:     true,
		TimeLimitMinutes: 1,
	}, WithExpireCallback(func() {
		mu.Lock()
		expirations++
		mu.Unlock()
	}))

	remaining, ok := s.TimeRemaining()
	assert.True(t, ok)
	assert.Greater(t, remaining, 50*time.Second)
	assert.False(t, s.Expired())
}

func TestUntimedSession_HasNoCountdown(t *testing.T) {
	s, _ := newTestSession(t, models.SessionConfig{ContentID: 42, HasTimeLimit: false})

	_, ok := s.TimeRemaining()
	assert.False(t, ok)
	assert.False(t, s.Expired())
}
