package models

import (
	"encoding/json"
	"time"

	tracking "github.com/architect/interactive-content/internal/tracking/models"
)

// ContentProgress is the stored progress row for one learner on one piece
// of content. Each incoming payload is a full snapshot, so rows are
// superseded in place rather than appended.
type ContentProgress struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"uniqueIndex:uq_progress_tuple" json:"user_id"`
	ContentID            uint      `gorm:"uniqueIndex:uq_progress_tuple;not null" json:"content_id"`
	CourseID             uint      `gorm:"uniqueIndex:uq_progress_tuple" json:"course_id"`
	ModuleID             uint      `gorm:"uniqueIndex:uq_progress_tuple" json:"module_id"`
	CurrentStep          int       `gorm:"default:0" json:"current_step"`
	TotalSteps           int       `gorm:"default:10" json:"total_steps"`
	CompletionPercentage int       `gorm:"default:0" json:"completion_percentage"`
	IsCompleted          bool      `gorm:"default:false" json:"is_completed"`
	TimeSpentSeconds     int       `gorm:"default:0" json:"time_spent_seconds"`
	Status               string    `gorm:"default:started" json:"status"`
	LastInteractionAt    time.Time `json:"last_interaction_at"`
	SyncCount            int       `gorm:"default:0" json:"sync_count"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// InteractionBatch stores one received interaction bundle verbatim, for
// the server-side adaptation pipeline to consume later.
type InteractionBatch struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"index" json:"user_id"`
	ContentID           uint            `gorm:"index;not null" json:"content_id"`
	CourseID            uint            `json:"course_id"`
	ModuleID            uint            `json:"module_id"`
	TotalInteractions   int             `json:"total_interactions"`
	AvgInteractionTime  float64         `json:"avg_interaction_time"`
	LearningPattern     string          `json:"learning_pattern"`
	TutorPersonality    string          `json:"tutor_personality"`
	AdaptationAlgorithm string          `json:"adaptation_algorithm"`
	Bundle              json.RawMessage `gorm:"type:json" json:"bundle"`
	ReceivedAt          time.Time       `json:"received_at"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ContentLoadEvent records the one-shot content-loaded notification.
type ContentLoadEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	ContentID uint      `gorm:"index;not null" json:"content_id"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	LoadedAt  time.Time `json:"loaded_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeExpiredEvent records the one-shot time-expired notification.
type TimeExpiredEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	ContentID uint      `gorm:"index;not null" json:"content_id"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	ExpiredAt time.Time `json:"expired_at"`
	CreatedAt time.Time `json:"created_at"`
}

// === REQUEST/RESPONSE TYPES ===

// SyncRequest is the progress sync payload as received on the wire.
type SyncRequest struct {
	ContentID       uint                       `json:"content_id" binding:"required,gt=0"`
	CourseID        uint                       `json:"course_id"`
	ModuleID        uint                       `json:"module_id"`
	ProgressData    tracking.ProgressSnapshot  `json:"progress_data"`
	InteractionData tracking.InteractionBundle `json:"interaction_data"`
}

// ContentLoadedRequest is the one-shot content-loaded notification body.
type ContentLoadedRequest struct {
	ContentID uint      `json:"content_id" binding:"required,gt=0"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// TimeExpiredRequest is the one-shot time-expired notification body.
type TimeExpiredRequest struct {
	ContentID uint      `json:"content_id" binding:"required,gt=0"`
	CourseID  uint      `json:"course_id"`
	ModuleID  uint      `json:"module_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// SyncResponse acknowledges a progress payload.
type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProgressResponse returns one stored progress row.
type ProgressResponse struct {
	UserID               uint      `json:"user_id"`
	ContentID            uint      `json:"content_id"`
	CourseID             uint      `json:"course_id"`
	ModuleID             uint      `json:"module_id"`
	CurrentStep          int       `json:"current_step"`
	TotalSteps           int       `json:"total_steps"`
	CompletionPercentage int       `json:"completion_percentage"`
	IsCompleted          bool      `json:"is_completed"`
	TimeSpentSeconds     int       `json:"time_spent_seconds"`
	Status               string    `json:"status"`
	LastInteractionAt    time.Time `json:"last_interaction_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ContentStatsResponse aggregates stored progress for one content ID.
type ContentStatsResponse struct {
	ContentID            uint    `json:"content_id"`
	Learners             int64   `json:"learners"`
	Completed            int64   `json:"completed"`
	CompletionRate       float64 `json:"completion_rate"`
	AverageCompletion    float64 `json:"average_completion"`
	AverageTimeSpentSecs float64 `json:"average_time_spent_seconds"`
	ExpiredSessions      int64   `json:"expired_sessions"`
	InteractionBatches   int64   `json:"interaction_batches"`
}
