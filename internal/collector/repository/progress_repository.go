package repository

import (
	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/internal/common/database"
	"github.com/architect/interactive-content/internal/common/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ========== PROGRESS REPOSITORY ==========

// UpsertProgress stores a progress row, superseding any prior row for the
// same (user, content, course, module) tuple. SyncCount counts payloads
// received, not state changes.
func UpsertProgress(record *models.ContentProgress) error {
	record.SyncCount = 0
	result := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "content_id"},
			{Name: "course_id"}, {Name: "module_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"current_step":          record.CurrentStep,
			"total_steps":           record.TotalSteps,
			"completion_percentage": record.CompletionPercentage,
			"is_completed":          record.IsCompleted,
			"time_spent_seconds":    record.TimeSpentSeconds,
			"status":                record.Status,
			"last_interaction_at":   record.LastInteractionAt,
			"updated_at":            record.UpdatedAt,
		}),
	}).Create(record)
	if result.Error != nil {
		return errors.Internal("failed to store progress", result.Error.Error())
	}

	// Bump the payload counter separately; OnConflict assignments cannot
	// reference the existing row portably across sqlite and postgres.
	database.DB.Model(&models.ContentProgress{}).
		Where("user_id = ? AND content_id = ? AND course_id = ? AND module_id = ?",
			record.UserID, record.ContentID, record.CourseID, record.ModuleID).
		UpdateColumn("sync_count", gorm.Expr("sync_count + 1"))

	return nil
}

// GetProgress fetches the stored row for one learner/content tuple.
// Returns nil when no progress has been recorded yet.
func GetProgress(userID, contentID, courseID, moduleID uint) (*models.ContentProgress, error) {
	var record models.ContentProgress
	result := database.DB.
		Where("user_id = ? AND content_id = ? AND course_id = ? AND module_id = ?",
			userID, contentID, courseID, moduleID).
		First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Internal("failed to fetch progress", result.Error.Error())
	}
	return &record, nil
}

// ListProgressByContent lists all learners' progress on one content ID.
func ListProgressByContent(contentID uint) ([]*models.ContentProgress, error) {
	var records []*models.ContentProgress
	result := database.DB.
		Where("content_id = ?", contentID).
		Order("updated_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, errors.Internal("failed to list progress", result.Error.Error())
	}
	return records, nil
}

// ========== INTERACTION BATCH REPOSITORY ==========

// SaveInteractionBatch appends one received interaction bundle.
func SaveInteractionBatch(batch *models.InteractionBatch) error {
	result := database.DB.Create(batch)
	if result.Error != nil {
		return errors.Internal("failed to store interaction batch", result.Error.Error())
	}
	return nil
}

// CountInteractionBatches counts stored bundles for a content ID.
func CountInteractionBatches(contentID uint) (int64, error) {
	var count int64
	result := database.DB.Model(&models.InteractionBatch{}).
		Where("content_id = ?", contentID).
		Count(&count)
	if result.Error != nil {
		return 0, errors.Internal("failed to count interaction batches", result.Error.Error())
	}
	return count, nil
}

// ========== EVENT REPOSITORIES ==========

// SaveContentLoadEvent records a content-loaded notification.
func SaveContentLoadEvent(event *models.ContentLoadEvent) error {
	result := database.DB.Create(event)
	if result.Error != nil {
		return errors.Internal("failed to store content load event", result.Error.Error())
	}
	return nil
}

// SaveTimeExpiredEvent records a time-expired notification.
func SaveTimeExpiredEvent(event *models.TimeExpiredEvent) error {
	result := database.DB.Create(event)
	if result.Error != nil {
		return errors.Internal("failed to store time expired event", result.Error.Error())
	}
	return nil
}

// CountTimeExpiredEvents counts expiries recorded for a content ID.
func CountTimeExpiredEvents(contentID uint) (int64, error) {
	var count int64
	result := database.DB.Model(&models.TimeExpiredEvent{}).
		Where("content_id = ?", contentID).
		Count(&count)
	if result.Error != nil {
		return 0, errors.Internal("failed to count expired events", result.Error.Error())
	}
	return count, nil
}
