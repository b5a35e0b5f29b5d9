package services

import (
	"encoding/json"
	"time"

	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/internal/collector/repository"
	"github.com/architect/interactive-content/internal/common/errors"
	"github.com/architect/interactive-content/internal/common/validation"
	tracking "github.com/architect/interactive-content/internal/tracking/models"
)

// maxTimeSpentSeconds caps reported time at one year; anything above is
// a corrupt payload.
const maxTimeSpentSeconds = 365 * 24 * 3600

// RecordProgress stores one full snapshot payload. The snapshot is
// re-derived server-side rather than trusted: percentage and status are
// recomputed from the step counts, and a completed flag is never cleared
// by a later payload (completion is monotonic).
func RecordProgress(userID uint, req models.SyncRequest) (*models.ContentProgress, error) {
	if req.ContentID == 0 {
		return nil, errors.BadRequest("invalid content ID")
	}

	snap := req.ProgressData
	if err := validation.ValidateIntRange(snap.TimeSpentSeconds, 0, maxTimeSpentSeconds); err != nil {
		return nil, errors.Validation("invalid time spent", err.Error())
	}

	if snap.TotalSteps < 1 {
		snap.TotalSteps = tracking.DefaultTotalSteps
	}
	if snap.CurrentStep < 0 {
		snap.CurrentStep = 0
	}
	if snap.CurrentStep > snap.TotalSteps {
		snap.CurrentStep = snap.TotalSteps
	}

	percentage := tracking.CompletionPercentage(snap.CurrentStep, snap.TotalSteps)
	if snap.IsCompleted {
		percentage = 100
	}

	existing, err := repository.GetProgress(userID, req.ContentID, req.CourseID, req.ModuleID)
	if err != nil {
		return nil, err
	}
	completed := snap.IsCompleted || (existing != nil && existing.IsCompleted)
	if completed {
		percentage = 100
		snap.CurrentStep = snap.TotalSteps
	}

	lastInteraction := snap.LastInteractionAt
	if lastInteraction.IsZero() {
		lastInteraction = time.Now()
	}

	record := &models.ContentProgress{
		UserID:               userID,
		ContentID:            req.ContentID,
		CourseID:             req.CourseID,
		ModuleID:             req.ModuleID,
		CurrentStep:          snap.CurrentStep,
		TotalSteps:           snap.TotalSteps,
		CompletionPercentage: percentage,
		IsCompleted:          completed,
		TimeSpentSeconds:     snap.TimeSpentSeconds,
		Status:               string(tracking.DeriveStatus(percentage, completed)),
		LastInteractionAt:    lastInteraction,
		UpdatedAt:            time.Now(),
	}

	if err := repository.UpsertProgress(record); err != nil {
		return nil, err
	}

	// Interaction bundles are stored verbatim for the adaptation
	// pipeline; a storage failure here must not reject the snapshot.
	if bundle, err := json.Marshal(req.InteractionData); err == nil {
		batch := &models.InteractionBatch{
			UserID:              userID,
			ContentID:           req.ContentID,
			CourseID:            req.CourseID,
			ModuleID:            req.ModuleID,
			TotalInteractions:   req.InteractionData.TotalInteractions,
			AvgInteractionTime:  req.InteractionData.AvgInteractionTime,
			LearningPattern:     string(req.InteractionData.LearningPattern),
			TutorPersonality:    req.InteractionData.TutorPersonality,
			AdaptationAlgorithm: req.InteractionData.AdaptationAlgorithm,
			Bundle:              bundle,
			ReceivedAt:          time.Now(),
		}
		_ = repository.SaveInteractionBatch(batch)
	}

	return record, nil
}

// GetProgress returns the stored row for one learner/content tuple.
func GetProgress(userID, contentID, courseID, moduleID uint) (*models.ProgressResponse, error) {
	if contentID == 0 {
		return nil, errors.BadRequest("invalid content ID")
	}

	record, err := repository.GetProgress(userID, contentID, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NotFound("progress")
	}

	return toProgressResponse(record), nil
}

// ListContentProgress returns every learner's progress on a content ID.
func ListContentProgress(contentID uint) ([]*models.ProgressResponse, error) {
	if contentID == 0 {
		return nil, errors.BadRequest("invalid content ID")
	}

	records, err := repository.ListProgressByContent(contentID)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ProgressResponse, len(records))
	for i, r := range records {
		out[i] = toProgressResponse(r)
	}
	return out, nil
}

// GetContentStats aggregates stored progress for one content ID.
func GetContentStats(contentID uint) (*models.ContentStatsResponse, error) {
	if contentID == 0 {
		return nil, errors.BadRequest("invalid content ID")
	}

	records, err := repository.ListProgressByContent(contentID)
	if err != nil {
		return nil, err
	}

	stats := &models.ContentStatsResponse{
		ContentID: contentID,
		Learners:  int64(len(records)),
	}

	if len(records) > 0 {
		var totalCompletion, totalTime float64
		for _, r := range records {
			if r.IsCompleted {
				stats.Completed++
			}
			totalCompletion += float64(r.CompletionPercentage)
			totalTime += float64(r.TimeSpentSeconds)
		}
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Learners)
		stats.AverageCompletion = totalCompletion / float64(stats.Learners)
		stats.AverageTimeSpentSecs = totalTime / float64(stats.Learners)
	}

	expired, err := repository.CountTimeExpiredEvents(contentID)
	if err == nil {
		stats.ExpiredSessions = expired
	}
	batches, err := repository.CountInteractionBatches(contentID)
	if err == nil {
		stats.InteractionBatches = batches
	}

	return stats, nil
}

// RecordContentLoaded stores the one-shot content-loaded notification.
func RecordContentLoaded(userID uint, req models.ContentLoadedRequest) error {
	loadedAt := req.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	return repository.SaveContentLoadEvent(&models.ContentLoadEvent{
		UserID:    userID,
		ContentID: req.ContentID,
		CourseID:  req.CourseID,
		ModuleID:  req.ModuleID,
		LoadedAt:  loadedAt,
	})
}

// RecordTimeExpired stores the one-shot time-expired notification.
func RecordTimeExpired(userID uint, req models.TimeExpiredRequest) error {
	expiredAt := req.ExpiredAt
	if expiredAt.IsZero() {
		expiredAt = time.Now()
	}
	return repository.SaveTimeExpiredEvent(&models.TimeExpiredEvent{
		UserID:    userID,
		ContentID: req.ContentID,
		CourseID:  req.CourseID,
		ModuleID:  req.ModuleID,
		ExpiredAt: expiredAt,
	})
}

func toProgressResponse(r *models.ContentProgress) *models.ProgressResponse {
	return &models.ProgressResponse{
		UserID:               r.UserID,
		ContentID:            r.ContentID,
		CourseID:             r.CourseID,
		ModuleID:             r.ModuleID,
		CurrentStep:          r.CurrentStep,
		TotalSteps:           r.TotalSteps,
		CompletionPercentage: r.CompletionPercentage,
		IsCompleted:          r.IsCompleted,
		TimeSpentSeconds:     r.TimeSpentSeconds,
		Status:               r.Status,
		LastInteractionAt:    r.LastInteractionAt,
		UpdatedAt:            r.UpdatedAt,
	}
}
