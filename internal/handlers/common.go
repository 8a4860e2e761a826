package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/testprep-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// Retry hints surfaced in ErrorResponse.Code so clients can tell a safe
// resubmission from a request that will fail the same way every time.
const (
	CodeRetrySafe  = "retry_safe"
	CodeDoNotRetry = "do_not_retry"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
	}
	h.logger.Info(message, append(fields, additionalFields...)...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	h.logger.LogError(err, message, append(fields, additionalFields...)...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	h.logger.Warn(message, append(fields, additionalFields...)...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// RequireUserID resolves the authenticated user id set by the auth
// middleware; it writes the 401 itself when identity is missing.
func (h *BaseHandler) RequireUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    CodeDoNotRetry,
		})
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    CodeDoNotRetry,
		})
		return "", false
	}
	return id, true
}
