package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/services"
	"github.com/prepdeck/testprep-service/internal/utils"
)

// SessionHandler exposes the session state machine and the answer
// recording pipeline over HTTP.
type SessionHandler struct {
	BaseHandler
	sessions  services.SessionService
	responses services.ResponseService
	exports   services.ResultExportService
}

func NewSessionHandler(
	sessions services.SessionService,
	responses services.ResponseService,
	exports services.ResultExportService,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		responses:   responses,
		exports:     exports,
	}
}

// Start begins a session for the authenticated user, or resumes the
// active one when it already exists.
// POST /api/v1/sessions/start
func (h *SessionHandler) Start(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogWarn(c, "Invalid start session payload", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
			Code:    CodeDoNotRetry,
		})
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err, "start_session")
		return
	}

	status := http.StatusCreated
	if session.Resumed {
		status = http.StatusOK
	}
	h.LogRequest(c, "Session started",
		"session_id", session.SessionID,
		"test_id", session.TestID,
		"resumed", session.Resumed,
	)
	c.JSON(status, SuccessResponse{
		Message: "Session started",
		Data:    session,
	})
}

// Get returns the caller's active session for a test, with its recorded
// responses, or existing_session=false when there is none.
// GET /api/v1/sessions/test/:test_id
func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	testID := c.Param("test_id")
	if testID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "test_id is required",
			Code:    CodeDoNotRetry,
		})
		return
	}

	result, err := h.sessions.Get(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err, "get_session")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session retrieved",
		Data:    result,
	})
}

// List returns the caller's session history, newest first, filterable
// by status, kind and start date.
// GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	filters, err := h.parseListFilters(c)
	if err != nil {
		h.LogWarn(c, "Invalid session list filters", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter parameters",
			Details: err.Error(),
			Code:    CodeDoNotRetry,
		})
		return
	}

	result, err := h.sessions.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err, "list_sessions")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sessions retrieved",
		Data:    result,
	})
}

func (h *SessionHandler) parseListFilters(c *gin.Context) (repositories.SessionFilters, error) {
	filters := repositories.SessionFilters{
		Limit:     h.parseIntQuery(c, "limit", 0),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SessionStatus(statusStr)
		switch status {
		case models.SessionInProgress, models.SessionPaused, models.SessionCompleted, models.SessionAbandoned:
			filters.Status = &status
		default:
			return filters, fmt.Errorf("unknown status %q", statusStr)
		}
	}

	if kindStr := c.Query("test_kind"); kindStr != "" {
		kind := models.TestKind(kindStr)
		switch kind {
		case models.TestKindTopic, models.TestKindModule, models.TestKindSection, models.TestKindFullLength:
			filters.TestKind = &kind
		default:
			return filters, fmt.Errorf("unknown test kind %q", kindStr)
		}
	}

	if fromStr := c.Query("date_from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return filters, fmt.Errorf("date_from: %w", err)
		}
		filters.DateFrom = &from
	}
	if toStr := c.Query("date_to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return filters, fmt.Errorf("date_to: %w", err)
		}
		filters.DateTo = &to
	}

	return filters, nil
}

func (h *SessionHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Advance moves the session cursor forward and switches between
// in_progress and paused.
// PUT /api/v1/sessions/:id/progress
func (h *SessionHandler) Advance(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	var req services.AdvanceSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogWarn(c, "Invalid progress payload", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
			Code:    CodeDoNotRetry,
		})
		return
	}

	if err := h.sessions.Advance(c.Request.Context(), sessionID, &req, userID); err != nil {
		h.handleServiceError(c, err, "advance_session")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Progress saved"})
}

// RecordResponse stores the answer for one question of the session.
// POST /api/v1/sessions/:id/responses
func (h *SessionHandler) RecordResponse(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	var req services.RecordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.LogWarn(c, "Invalid response payload", "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
			Code:    CodeDoNotRetry,
		})
		return
	}

	result, err := h.responses.Record(c.Request.Context(), sessionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err, "record_response")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Response recorded",
		Data:    result,
	})
}

// Complete finishes the session and returns the computed statistics.
// POST /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	stats, err := h.sessions.Complete(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err, "complete_session")
		return
	}

	h.LogRequest(c, "Session completed",
		"session_id", sessionID,
		"score", stats.Score,
		"accuracy", stats.Accuracy,
	)
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session completed",
		Data:    stats,
	})
}

// Abandon marks the session abandoned. Already-ended sessions are left
// untouched and the call still succeeds.
// POST /api/v1/sessions/:id/abandon
func (h *SessionHandler) Abandon(c *gin.Context) {
	if _, ok := h.RequireUserID(c); !ok {
		return
	}
	sessionID := c.Param("id")

	if err := h.sessions.Abandon(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err, "abandon_session")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session abandoned"})
}

// ExportResults streams the completed session's results as a spreadsheet.
// GET /api/v1/sessions/:id/results/export
func (h *SessionHandler) ExportResults(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	export, err := h.exports.ExportResults(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err, "export_results")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
