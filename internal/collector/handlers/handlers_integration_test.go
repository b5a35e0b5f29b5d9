package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/internal/common/database"
	"github.com/architect/interactive-content/internal/common/middleware"
	tracking "github.com/architect/interactive-content/internal/tracking/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := database.InitMemory(); err != nil {
		fmt.Fprintf(os.Stderr, "test database: %v\n", err)
		os.Exit(1)
	}
	if err := database.Migrate(
		&models.ContentProgress{},
		&models.InteractionBatch{},
		&models.ContentLoadEvent{},
		&models.TimeExpiredEvent{},
	); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// setupTestRouter creates a Gin router with tracking handlers for testing
func setupTestRouter() *gin.Engine {
	router := gin.New()

	api := router.Group("/api/v1/tracking")
	api.Use(middleware.OptionalAuth())
	{
		api.POST("/progress", SyncProgress)
		api.POST("/content-loaded", ContentLoaded)
		api.POST("/time-expired", TimeExpired)
		api.GET("/progress", GetProgress)
		api.GET("/content/:content_id/progress", ListContentProgress)
		api.GET("/content/:content_id/stats", GetContentStats)
	}

	return router
}

func postJSON(router *gin.Engine, path string, body interface{}, userID uint) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func syncRequest(contentID uint, step, total int, completed bool) models.SyncRequest {
	percentage := tracking.CompletionPercentage(step, total)
	return models.SyncRequest{
		ContentID: contentID,
		CourseID:  7,
		ModuleID:  3,
		ProgressData: tracking.ProgressSnapshot{
			CurrentStep:          step,
			TotalSteps:           total,
			CompletionPercentage: percentage,
			IsCompleted:          completed,
			TimeSpentSeconds:     120,
			Status:               tracking.DeriveStatus(percentage, completed),
		},
		InteractionData: tracking.InteractionBundle{
			InteractionHistory: []tracking.InteractionEvent{
				{Type: tracking.EventClick, StepAtTime: step},
			},
			TutorPersonality:    "friendly",
			AdaptationAlgorithm: "reinforcement",
			TotalInteractions:   1,
		},
	}
}

func TestSyncProgress_StoresSnapshot(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/progress", syncRequest(101, 3, 10, false), 11)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	req, _ := http.NewRequest("GET", "/api/v1/tracking/progress?content_id=101&course_id=7&module_id=3", nil)
	req.Header.Set("Authorization", "11")
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var progress models.ProgressResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &progress))
	assert.Equal(t, uint(11), progress.UserID)
	assert.Equal(t, 3, progress.CurrentStep)
	assert.Equal(t, 30, progress.CompletionPercentage)
	assert.Equal(t, "in_progress", progress.Status)
	assert.False(t, progress.IsCompleted)
}

func TestSyncProgress_SupersedesPreviousSnapshot(t *testing.T) {
	router := setupTestRouter()

	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(102, 2, 10, false), 11).Code)
	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(102, 8, 10, false), 11).Code)

	req, _ := http.NewRequest("GET", "/api/v1/tracking/progress?content_id=102&course_id=7&module_id=3", nil)
	req.Header.Set("Authorization", "11")
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var progress models.ProgressResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &progress))
	assert.Equal(t, 8, progress.CurrentStep)
	assert.Equal(t, 80, progress.CompletionPercentage)
}

func TestSyncProgress_CompletionIsMonotonic(t *testing.T) {
	router := setupTestRouter()

	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(103, 10, 10, true), 11).Code)
	// A stale payload without the completed flag must not regress it.
	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(103, 4, 10, false), 11).Code)

	req, _ := http.NewRequest("GET", "/api/v1/tracking/progress?content_id=103&course_id=7&module_id=3", nil)
	req.Header.Set("Authorization", "11")
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var progress models.ProgressResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &progress))
	assert.True(t, progress.IsCompleted)
	assert.Equal(t, 100, progress.CompletionPercentage)
	assert.Equal(t, "completed", progress.Status)
}

func TestSyncProgress_AnonymousAccepted(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/progress", syncRequest(104, 1, 10, false), 0)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncProgress_MissingContentID(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/progress", models.SyncRequest{}, 11)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestSyncProgress_InvalidJSON(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("POST", "/api/v1/tracking/progress", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProgress_NotFound(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/v1/tracking/progress?content_id=9999", nil)
	req.Header.Set("Authorization", "11")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentLoaded_Recorded(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/content-loaded", models.ContentLoadedRequest{
		ContentID: 105,
		CourseID:  7,
		ModuleID:  3,
	}, 11)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestContentLoaded_MissingContentID(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/content-loaded", models.ContentLoadedRequest{}, 11)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimeExpired_Recorded(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/tracking/time-expired", models.TimeExpiredRequest{
		ContentID: 106,
		CourseID:  7,
		ModuleID:  3,
	}, 11)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListContentProgress_MultipleLearners(t *testing.T) {
	router := setupTestRouter()

	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(107, 10, 10, true), 21).Code)
	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(107, 5, 10, false), 22).Code)

	req, _ := http.NewRequest("GET", "/api/v1/tracking/content/107/progress", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ContentID uint                       `json:"content_id"`
		Progress  []*models.ProgressResponse `json:"progress"`
		Total     int                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint(107), body.ContentID)
	assert.Equal(t, 2, body.Total)
}

func TestGetContentStats_Aggregates(t *testing.T) {
	router := setupTestRouter()

	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(108, 10, 10, true), 31).Code)
	require.Equal(t, http.StatusOK, postJSON(router, "/api/v1/tracking/progress", syncRequest(108, 5, 10, false), 32).Code)

	req, _ := http.NewRequest("GET", "/api/v1/tracking/content/108/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.ContentStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Learners)
	assert.Equal(t, int64(1), stats.Completed)
	assert.InDelta(t, 0.5, stats.CompletionRate, 0.01)
	assert.InDelta(t, 75.0, stats.AverageCompletion, 0.01)
}
