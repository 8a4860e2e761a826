package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prepdeck/testprep-service/internal/cache"
	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/utils"
)

type responseService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    utils.Logger
	validator *utils.Validator
}

func NewResponseService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	logger utils.Logger,
	validator *utils.Validator,
) ResponseService {
	return &responseService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

// Record upserts the learner's response for one question. Correctness
// is computed here from the stored correct answer; any client-supplied
// correctness claim is ignored. Recording does not advance the cursor.
func (s *responseService) Record(ctx context.Context, sessionID string, req *RecordResponseRequest, userID string) (*RecordResponseResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	// Validate the answer alphabet before touching storage.
	var selected *models.AnswerOption
	if !req.IsSkipped {
		if req.SelectedAnswer == nil {
			return nil, fmt.Errorf("%w: selected_answer is required unless skipped", ErrInvalidAnswerFormat)
		}
		normalized, ok := models.NormalizeAnswerOption(*req.SelectedAnswer)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAnswerFormat, *req.SelectedAnswer)
		}
		selected = &normalized
	}

	var created bool
	var sessionUserID, sessionTestID string
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if session.UserID != userID {
			return NewPermissionError(userID, sessionID, "session", "record_response", "not owned by user")
		}
		if session.Status.IsTerminal() {
			return ErrSessionTerminal
		}

		response := &models.QuestionResponse{
			SessionID:  sessionID,
			QuestionID: req.QuestionID,
			IsSkipped:  req.IsSkipped,
			TimeSpent:  req.TimeSpent,
		}
		if !req.IsSkipped {
			correct, err := tx.Question().GetCorrectAnswer(ctx, req.QuestionID)
			if err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrQuestionNotFound
				}
				return fmt.Errorf("failed to look up correct answer: %w", err)
			}
			response.SelectedAnswer = selected
			response.IsCorrect = *selected == correct
		} else {
			// Skips carry no answer and are never correct, regardless of
			// what was submitted alongside.
			exists, err := tx.Question().Exists(ctx, req.QuestionID)
			if err != nil {
				return fmt.Errorf("failed to look up question: %w", err)
			}
			if !exists {
				return ErrQuestionNotFound
			}
		}

		created, err = tx.Response().Upsert(ctx, response)
		if err != nil {
			return fmt.Errorf("failed to upsert response: %w", err)
		}

		sessionUserID, sessionTestID = session.UserID, session.TestID
		return tx.Session().TouchActivity(ctx, sessionID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.SessionSummaryKey(sessionUserID, sessionTestID)); err != nil {
		s.logger.Warn("Failed to invalidate session cache", "session_id", sessionID, "error", err)
	}

	status := RecordStatusUpdated
	if created {
		status = RecordStatusSaved
	}

	s.logger.Info("Response recorded",
		"session_id", sessionID,
		"question_id", req.QuestionID,
		"skipped", req.IsSkipped,
		"status", status)

	return &RecordResponseResult{Status: status}, nil
}
