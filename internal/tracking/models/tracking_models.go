package models

import (
	"time"
)

// DefaultTotalSteps is used when the host supplies no step estimate.
const DefaultTotalSteps = 10

// EventType classifies a captured UI interaction.
type EventType string

const (
	EventClick        EventType = "click"
	EventKeypress     EventType = "keypress"
	EventSubmit       EventType = "submit"
	EventScroll       EventType = "scroll"
	EventFocus        EventType = "focus"
	EventStepChange   EventType = "step_change"
	EventCompletion   EventType = "completion"
	EventIframeLoaded EventType = "iframe_loaded"
)

// Status describes where a session is in its lifecycle.
// Derived from the snapshot, never set independently.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// EngagementLevel buckets interaction volume for the adaptation backend.
type EngagementLevel string

const (
	EngagementLow    EngagementLevel = "low"
	EngagementMedium EngagementLevel = "medium"
	EngagementHigh   EngagementLevel = "high"
)

// SessionConfig is the host-supplied configuration for one piece of
// embedded content. Immutable for the session's lifetime.
type SessionConfig struct {
	ContentID           uint   `json:"content_id"`
	CourseID            uint   `json:"course_id"`
	ModuleID            uint   `json:"module_id"`
	HasTimeLimit        bool   `json:"has_time_limit"`
	TimeLimitMinutes    int    `json:"time_limit_minutes"`
	TutorPersonality    string `json:"tutor_personality"`
	AdaptationAlgorithm string `json:"adaptation_algorithm"`
}

// ProgressSnapshot is the current progress state of a session.
// CompletionPercentage is always recomputed from CurrentStep/TotalSteps.
type ProgressSnapshot struct {
	CurrentStep          int       `json:"current_step"`
	TotalSteps           int       `json:"total_steps"`
	CompletionPercentage int       `json:"completion_percentage"`
	IsCompleted          bool      `json:"is_completed"`
	TimeSpentSeconds     int       `json:"time_spent_seconds"`
	Status               Status    `json:"status"`
	LastInteractionAt    time.Time `json:"last_interaction_at"`
}

// CompletionPercentage computes floor(step/total*100) clamped to [0,100].
func CompletionPercentage(step, total int) int {
	if total < 1 {
		total = DefaultTotalSteps
	}
	if step < 0 {
		step = 0
	}
	if step > total {
		step = total
	}
	return step * 100 / total
}

// DeriveStatus maps completion state onto the lifecycle enum.
func DeriveStatus(percentage int, completed bool) Status {
	switch {
	case completed:
		return StatusCompleted
	case percentage == 0:
		return StatusStarted
	default:
		return StatusInProgress
	}
}

// TargetDescriptor identifies the UI element an interaction landed on.
type TargetDescriptor struct {
	Kind  string `json:"kind,omitempty"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
}

// Position is a pointer coordinate at interaction time.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InteractionEvent is one captured UI event, appended to the bounded
// interaction history in arrival order.
type InteractionEvent struct {
	Type             EventType         `json:"type"`
	Timestamp        time.Time         `json:"timestamp"`
	Target           *TargetDescriptor `json:"target,omitempty"`
	Position         *Position         `json:"position,omitempty"`
	StepAtTime       int               `json:"step_at_time"`
	CompletionAtTime int               `json:"completion_at_time"`
	AdaptationTag    string            `json:"adaptation_tag,omitempty"`
}

// UserResponse is an explicit answer captured from the learner.
type UserResponse struct {
	Timestamp    time.Time `json:"timestamp"`
	Step         int       `json:"step"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	ResponseType string    `json:"response_type"`
}

// AIFeedbackEvent is tutor feedback surfaced to the learner, recorded
// for the server-side adaptation algorithm.
type AIFeedbackEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	Step             int       `json:"step"`
	FeedbackText     string    `json:"feedback_text"`
	FeedbackType     string    `json:"feedback_type"`
	TutorPersonality string    `json:"tutor_personality"`
}

// InteractionAnalytics are derived measures computed on demand over the
// interaction history; nothing here is stored.
type InteractionAnalytics struct {
	TotalInteractions    int             `json:"total_interactions"`
	AverageIntervalMs    float64         `json:"avg_interaction_time"`
	EngagementLevel      EngagementLevel `json:"engagement_level"`
	ClickRatio           float64         `json:"click_ratio"`
	ScrollFrequency      float64         `json:"scroll_frequency"`
	FormInteractionCount int             `json:"form_interaction_count"`
}

// InteractionBundle is the interaction_data half of a sync payload.
type InteractionBundle struct {
	InteractionHistory  []InteractionEvent `json:"interaction_history"`
	UserResponses       []UserResponse     `json:"user_responses"`
	AIFeedback          []AIFeedbackEvent  `json:"ai_feedback"`
	TutorPersonality    string             `json:"tutor_personality"`
	AdaptationAlgorithm string             `json:"adaptation_algorithm"`
	TotalInteractions   int                `json:"total_interactions"`
	AvgInteractionTime  float64            `json:"avg_interaction_time"`
	LearningPattern     EngagementLevel    `json:"learning_pattern"`
	Timestamp           time.Time          `json:"timestamp"`
}

// SyncPayload is one full progress snapshot shipped to the collection
// endpoint. Each payload supersedes the previous one; nothing is a delta.
type SyncPayload struct {
	ContentID       uint              `json:"content_id"`
	CourseID        uint              `json:"course_id"`
	ModuleID        uint              `json:"module_id"`
	ProgressData    ProgressSnapshot  `json:"progress_data"`
	InteractionData InteractionBundle `json:"interaction_data"`
}

// SyncResult is the endpoint's acknowledgement.
type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ContentLoadedNotice is the one-shot notification fired when the
// embedded content finishes loading.
type ContentLoadedNotice struct {
	ContentID uint      `json:"content_id"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// TimeExpiredNotice is the one-shot notification fired when a timed
// session runs out the clock.
type TimeExpiredNotice struct {
	ContentID uint      `json:"content_id"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	ExpiredAt time.Time `json:"expired_at"`
}
