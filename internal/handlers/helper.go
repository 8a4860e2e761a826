package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/prepdeck/testprep-service/internal/errors"
	"github.com/prepdeck/testprep-service/internal/services"
)

// handleServiceError maps service layer errors onto HTTP status codes and
// tags each response with a retry hint derived from services.IsRetrySafe.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error, operation string) {
	code := CodeDoNotRetry
	if services.IsRetrySafe(err) {
		code = CodeRetrySafe
	}

	var validationErrs apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.LogWarn(c, "Validation failed", "operation", operation, "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
			Code:    code,
		})
		return
	}

	switch {
	case services.IsUnauthorized(err):
		h.LogWarn(c, "Unauthorized request", "operation", operation)
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Authentication required",
			Code:    code,
		})
	case services.IsForbidden(err):
		h.LogWarn(c, "Forbidden request", "operation", operation, "error", err.Error())
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Code:    code,
		})
	case services.IsNotFound(err):
		h.LogWarn(c, "Resource not found", "operation", operation, "error", err.Error())
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
			Code:    code,
		})
	case services.IsConflict(err):
		h.LogWarn(c, "Conflicting session state", "operation", operation, "error", err.Error())
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Code:    code,
		})
	case services.IsValidation(err):
		h.LogWarn(c, "Invalid request", "operation", operation, "error", err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    code,
		})
	default:
		h.LogError(c, err, "Unhandled service error", "operation", operation)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Code:    code,
		})
	}
}
