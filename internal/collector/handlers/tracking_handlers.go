package handlers

import (
	"net/http"
	"strconv"

	"github.com/architect/interactive-content/internal/collector/live"
	"github.com/architect/interactive-content/internal/collector/metrics"
	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/internal/collector/services"
	"github.com/architect/interactive-content/internal/common/errors"
	"github.com/architect/interactive-content/internal/common/middleware"
	"github.com/gin-gonic/gin"
)

// liveHub receives accepted snapshots for dashboard fan-out. Optional;
// nil when the collector runs without the live feed.
var liveHub *live.Hub

// SetLiveHub wires the websocket hub used for live progress fan-out.
func SetLiveHub(hub *live.Hub) {
	liveHub = hub
}

// SyncProgress accepts one full progress snapshot plus interaction bundle.
// POST /api/v1/tracking/progress
func SyncProgress(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.PayloadsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, models.SyncResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	userID := middleware.UserID(c)

	record, err := services.RecordProgress(userID, req)
	if err != nil {
		metrics.PayloadsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		appErr := errors.From(err)
		c.JSON(appErr.Status, models.SyncResponse{
			Success: false,
			Message: appErr.Message,
		})
		return
	}

	metrics.PayloadsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	if liveHub != nil {
		liveHub.BroadcastProgress(record)
	}

	c.JSON(http.StatusOK, models.SyncResponse{Success: true, Message: "progress stored"})
}

// ContentLoaded accepts the one-shot content-loaded notification.
// POST /api/v1/tracking/content-loaded
func ContentLoaded(c *gin.Context) {
	var req models.ContentLoadedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := services.RecordContentLoaded(middleware.UserID(c), req); err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	metrics.ContentLoadedTotal.Inc()
	c.JSON(http.StatusOK, models.SyncResponse{Success: true})
}

// TimeExpired accepts the one-shot time-expired notification.
// POST /api/v1/tracking/time-expired
func TimeExpired(c *gin.Context) {
	var req models.TimeExpiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := services.RecordTimeExpired(middleware.UserID(c), req); err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	metrics.TimeExpiredTotal.Inc()
	c.JSON(http.StatusOK, models.SyncResponse{Success: true})
}

// GetProgress returns the stored progress for the authenticated user.
// GET /api/v1/tracking/progress?content_id=42&course_id=7&module_id=3
func GetProgress(c *gin.Context) {
	contentID := queryUint(c, "content_id")
	courseID := queryUint(c, "course_id")
	moduleID := queryUint(c, "module_id")

	response, err := services.GetProgress(middleware.UserID(c), contentID, courseID, moduleID)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListContentProgress returns every learner's progress on one content ID.
// GET /api/v1/tracking/content/:content_id/progress
func ListContentProgress(c *gin.Context) {
	contentID := paramUint(c, "content_id")

	records, err := services.ListContentProgress(contentID)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content_id": contentID,
		"progress":   records,
		"total":      len(records),
	})
}

// GetContentStats returns aggregate stats for one content ID.
// GET /api/v1/tracking/content/:content_id/stats
func GetContentStats(c *gin.Context) {
	contentID := paramUint(c, "content_id")

	stats, err := services.GetContentStats(contentID)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// LiveFeed upgrades the request to a websocket streaming accepted
// snapshots to dashboards.
// GET /api/v1/tracking/live
func LiveFeed(c *gin.Context) {
	if liveHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed not enabled"})
		return
	}

	if err := liveHub.Subscribe(c.Writer, c.Request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	metrics.LiveSubscribers.Set(float64(liveHub.SubscriberCount()))
}

func queryUint(c *gin.Context, key string) uint {
	if v, err := strconv.ParseUint(c.Query(key), 10, 32); err == nil {
		return uint(v)
	}
	return 0
}

func paramUint(c *gin.Context, key string) uint {
	if v, err := strconv.ParseUint(c.Param(key), 10, 32); err == nil {
		return uint(v)
	}
	return 0
}
