package services

import (
	"errors"
	"fmt"

	apperrors "github.com/prepdeck/testprep-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Enrollment gate errors. A failed lookup is deliberately distinct
	// from a negative answer.
	ErrNotEnrolled           = errors.New("user is not enrolled for this test")
	ErrEnrollmentCheckFailed = errors.New("entitlement check failed")

	// Catalog errors
	ErrTestNotFound     = errors.New("test not found")
	ErrQuestionNotFound = errors.New("question not found")

	// Session specific errors
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionTerminal         = errors.New("session is already in a terminal state")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrSessionNotCompleted     = errors.New("session is not completed")
	ErrInvalidStatusTarget     = errors.New("status cannot be set through progress updates")
	ErrCursorRegression        = errors.New("question cursor cannot move backward")

	// Response specific errors
	ErrInvalidAnswerFormat = errors.New("selected answer is not a valid option")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}

// IsUnauthorized checks if error represents a missing-identity condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if error represents an authorization failure,
// distinct from "not found" so callers can tell "you may not see this"
// from "this does not exist".
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotEnrolled) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidAnswerFormat) ||
		errors.Is(err, ErrInvalidStatusTarget) ||
		errors.Is(err, ErrCursorRegression) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents an illegal state transition
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionTerminal) ||
		errors.Is(err, ErrSessionAlreadyCompleted) ||
		errors.Is(err, ErrSessionNotCompleted)
}

// IsRetrySafe reports whether the caller may safely resubmit the same
// request. Validation failures and state conflicts will fail the same
// way every time; infrastructure failures may succeed on retry, and
// mutating operations are idempotent upserts.
func IsRetrySafe(err error) bool {
	return !IsValidation(err) && !IsConflict(err) && !IsForbidden(err) && !IsNotFound(err) && !IsUnauthorized(err)
}
