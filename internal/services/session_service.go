package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/testprep-service/internal/cache"
	"github.com/prepdeck/testprep-service/internal/events"
	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/utils"
)

const (
	expiredReapBatchSize = 200

	defaultSessionListLimit = 20
	maxSessionListLimit     = 100
)

type sessionService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	cache     cache.CacheService
	logger    utils.Logger
	validator *utils.Validator
}

func NewSessionService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger utils.Logger,
	validator *utils.Validator,
) SessionService {
	return &sessionService{
		repo:      repo,
		publisher: publisher,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

// ===== STATE TRANSITIONS =====

// Start opens a session for (user, test), resuming the active one if it
// exists. The partial unique index on active sessions serializes
// concurrent starts; the loser of that race re-reads and resumes the
// winner's session instead of erroring.
func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, userID string) (*SessionResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	s.logger.Info("Starting test session", "test_id", req.TestID, "user_id", userID)

	exists, err := s.repo.Test().Exists(ctx, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, userID, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnrollmentCheckFailed, err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	if active, err := s.repo.Session().GetActiveSession(ctx, userID, req.TestID); err != nil {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	} else if active != nil {
		s.logger.Info("Resuming existing session", "session_id", active.ID, "user_id", userID)
		return buildSessionResponse(active, true), nil
	}

	now := time.Now().UTC()
	session := &models.TestSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		TestID:         req.TestID,
		TestKind:       req.TestKind,
		Status:         models.SessionInProgress,
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		if repositories.IsUniqueViolation(err) {
			winner, lookupErr := s.repo.Session().GetActiveSession(ctx, userID, req.TestID)
			if lookupErr == nil && winner != nil {
				s.logger.Info("Lost session-start race, resuming winner",
					"session_id", winner.ID, "user_id", userID)
				return buildSessionResponse(winner, true), nil
			}
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.invalidateCache(ctx, userID, req.TestID)
	s.logger.Info("Test session started", "session_id", session.ID, "test_id", req.TestID, "user_id", userID)

	return buildSessionResponse(session, false), nil
}

// Get returns the active session for (user, test) with prior responses,
// or {existing_session:false} when none is open.
func (s *sessionService) Get(ctx context.Context, testID string, userID string) (*GetSessionResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	key := cache.SessionSummaryKey(userID, testID)
	var cached GetSessionResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	session, err := s.repo.Session().GetActiveSession(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	if session == nil {
		return &GetSessionResponse{ExistingSession: false}, nil
	}

	responses, err := s.repo.Response().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	result := &GetSessionResponse{
		ExistingSession: true,
		Session:         buildSessionResponse(session, true),
		Responses:       buildResponseSummaries(responses),
	}

	if err := s.cache.Set(ctx, key, result, cache.SessionSummaryTTL); err != nil {
		s.logger.Warn("Failed to cache session summary", "session_id", session.ID, "error", err)
	}

	return result, nil
}

// List returns the user's session history with optional status, kind
// and date filters. Defaults to the most recent sessions first.
func (s *sessionService) List(ctx context.Context, userID string, filters repositories.SessionFilters) (*SessionListResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	if filters.Limit <= 0 || filters.Limit > maxSessionListLimit {
		filters.Limit = defaultSessionListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	sessions, total, err := s.repo.Session().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]SessionHistoryItem, len(sessions))
	for i, session := range sessions {
		items[i] = SessionHistoryItem{
			SessionID:            session.ID,
			TestID:               session.TestID,
			TestKind:             session.TestKind,
			Status:               session.Status,
			CurrentQuestionIndex: session.CurrentQuestionIndex,
			StartedAt:            session.StartedAt,
			LastActivityAt:       session.LastActivityAt,
			EndedAt:              session.EndedAt,
			FinalScore:           session.FinalScore,
			TotalTimeSpent:       session.TotalTimeSpent,
		}
	}

	return &SessionListResponse{
		Sessions: items,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

// Advance moves the cursor forward and toggles in_progress/paused.
// Terminal targets are rejected here; completion has its own transition.
func (s *sessionService) Advance(ctx context.Context, sessionID string, req *AdvanceSessionRequest, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}
	if req.Status.IsTerminal() {
		return ErrInvalidStatusTarget
	}

	var touchedUserID, touchedTestID string
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if session.UserID != userID {
			return NewPermissionError(userID, sessionID, "session", "advance", "not owned by user")
		}
		if session.Status.IsTerminal() {
			return ErrSessionTerminal
		}
		if req.CurrentQuestionIndex < session.CurrentQuestionIndex {
			return ErrCursorRegression
		}

		touchedUserID, touchedTestID = session.UserID, session.TestID
		return tx.Session().UpdateProgress(ctx, sessionID, req.CurrentQuestionIndex, req.Status, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx, touchedUserID, touchedTestID)
	return nil
}

// Complete scores the session and writes the terminal record in one
// transaction. The row lock makes it mutually exclusive with Advance and
// Record; a second Complete observes the terminal state and conflicts.
func (s *sessionService) Complete(ctx context.Context, sessionID string, userID string) (*SessionStats, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	s.logger.Info("Completing test session", "session_id", sessionID, "user_id", userID)

	var stats *SessionStats
	var completed *models.TestSession
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if session.UserID != userID {
			return NewPermissionError(userID, sessionID, "session", "complete", "not owned by user")
		}
		if session.Status == models.SessionCompleted {
			return ErrSessionAlreadyCompleted
		}
		if session.Status.IsTerminal() {
			return ErrSessionTerminal
		}

		// Score against the transaction-bound repository so the read of
		// all responses shares the single-writer scope of the terminal
		// write.
		stats, err = NewScoringEngine(tx, s.logger).Score(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to score session: %w", err)
		}

		breakdown, err := json.Marshal(stats.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal breakdown: %w", err)
		}

		completedAt := time.Now().UTC()
		if err := tx.Session().Complete(ctx, sessionID, completedAt, stats.Score, stats.TotalTime, breakdown); err != nil {
			return fmt.Errorf("failed to finalize session: %w", err)
		}
		completed = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, completed.UserID, completed.TestID)
	s.publishCompleted(ctx, completed, stats)

	s.logger.Info("Test session completed",
		"session_id", sessionID,
		"user_id", userID,
		"score", stats.Score,
		"accuracy", stats.Accuracy)

	return stats, nil
}

// Abandon marks a non-terminal session abandoned without scoring. Safe
// to call at any time; once terminal it is a no-op so reaper retries
// never error.
func (s *sessionService) Abandon(ctx context.Context, sessionID string) error {
	var abandoned *models.TestSession
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if session.Status.IsTerminal() {
			return nil
		}
		if err := tx.Session().Abandon(ctx, sessionID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to abandon session: %w", err)
		}
		abandoned = session
		return nil
	})
	if err != nil {
		return err
	}
	if abandoned == nil {
		return nil
	}

	s.invalidateCache(ctx, abandoned.UserID, abandoned.TestID)
	s.publishAbandoned(ctx, abandoned)

	s.logger.Info("Test session abandoned", "session_id", sessionID, "user_id", abandoned.UserID)
	return nil
}

// AbandonExpired reaps sessions idle past the timeout. Invoked by the
// reaper loop; individual failures are logged and skipped so one bad
// row cannot stall the sweep.
func (s *sessionService) AbandonExpired(ctx context.Context, idleTimeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-idleTimeout)
	expired, err := s.repo.Session().GetExpiredSessions(ctx, cutoff, expiredReapBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	reaped := 0
	reapedUsers := make(map[string]struct{})
	for _, session := range expired {
		if err := s.Abandon(ctx, session.ID); err != nil {
			s.logger.Error("Failed to abandon expired session", "session_id", session.ID, "error", err)
			continue
		}
		reaped++
		reapedUsers[session.UserID] = struct{}{}
	}

	// A reaped user may hold stale summaries beyond the (user, test)
	// pairs just abandoned, so drop everything cached for them.
	for userID := range reapedUsers {
		if err := s.cache.DeletePattern(ctx, cache.UserSessionSummaryPattern(userID)); err != nil {
			s.logger.Warn("Failed to invalidate user session cache", "user_id", userID, "error", err)
		}
	}

	if reaped > 0 {
		s.logger.Info("Reaped expired sessions", "count", reaped, "cutoff", cutoff)
	}
	return reaped, nil
}

// ===== HELPERS =====

func (s *sessionService) invalidateCache(ctx context.Context, userID, testID string) {
	if userID == "" {
		return
	}
	if err := s.cache.Delete(ctx, cache.SessionSummaryKey(userID, testID)); err != nil {
		s.logger.Warn("Failed to invalidate session cache", "user_id", userID, "test_id", testID, "error", err)
	}
}

func (s *sessionService) publishCompleted(ctx context.Context, session *models.TestSession, stats *SessionStats) {
	event := events.NewSessionCompletedEvent(session.ID, session.UserID, session.TestID,
		stats.Score, stats.Accuracy, stats.TotalTime)
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish session completed event", "session_id", session.ID, "error", err)
	}
}

func (s *sessionService) publishAbandoned(ctx context.Context, session *models.TestSession) {
	event := events.NewSessionAbandonedEvent(session.ID, session.UserID, session.TestID)
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish session abandoned event", "session_id", session.ID, "error", err)
	}
}

func buildSessionResponse(session *models.TestSession, resumed bool) *SessionResponse {
	return &SessionResponse{
		SessionID:            session.ID,
		TestID:               session.TestID,
		TestKind:             session.TestKind,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		Status:               session.Status,
		StartedAt:            session.StartedAt,
		LastActivityAt:       session.LastActivityAt,
		Resumed:              resumed,
	}
}

func buildResponseSummaries(responses []*models.QuestionResponse) []ResponseSummary {
	summaries := make([]ResponseSummary, len(responses))
	for i, resp := range responses {
		summaries[i] = ResponseSummary{
			QuestionID:     resp.QuestionID,
			SelectedAnswer: resp.SelectedAnswer,
			IsCorrect:      resp.IsCorrect,
			IsSkipped:      resp.IsSkipped,
			TimeSpent:      resp.TimeSpent,
		}
	}
	return summaries
}
