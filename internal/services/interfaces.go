package services

import (
	"context"
	"time"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

// SessionService is the test-session state machine. Sessions start in
// in_progress, move between in_progress and paused via Advance, and end
// exactly once through Complete or Abandon.
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest, userID string) (*SessionResponse, error)
	Get(ctx context.Context, testID string, userID string) (*GetSessionResponse, error)
	List(ctx context.Context, userID string, filters repositories.SessionFilters) (*SessionListResponse, error)
	Advance(ctx context.Context, sessionID string, req *AdvanceSessionRequest, userID string) error
	Complete(ctx context.Context, sessionID string, userID string) (*SessionStats, error)
	Abandon(ctx context.Context, sessionID string) error
	AbandonExpired(ctx context.Context, idleTimeout time.Duration) (int, error)
}

// ResponseService records one response per (session, question),
// idempotently upserting on resubmission.
type ResponseService interface {
	Record(ctx context.Context, sessionID string, req *RecordResponseRequest, userID string) (*RecordResponseResult, error)
}

// ScoringEngine aggregates a session's responses into final statistics.
// Pure read + compute; the state machine's Complete transition persists
// the result.
type ScoringEngine interface {
	Score(ctx context.Context, sessionID string) (*SessionStats, error)
}

// ResultExportService renders a completed session's statistics as a
// spreadsheet for download.
type ResultExportService interface {
	ExportResults(ctx context.Context, sessionID string, userID string) (*ResultExport, error)
}

// ===== REQUEST / RESPONSE TYPES =====

type StartSessionRequest struct {
	TestID   string          `json:"test_id" validate:"required"`
	TestKind models.TestKind `json:"test_type" validate:"required,test_kind"`
}

type AdvanceSessionRequest struct {
	CurrentQuestionIndex int                  `json:"current_question_index" validate:"min=0"`
	Status               models.SessionStatus `json:"status" validate:"required,oneof=in_progress paused"`
}

type RecordResponseRequest struct {
	QuestionID     string  `json:"question_id" validate:"required"`
	SelectedAnswer *string `json:"selected_answer,omitempty"`
	IsSkipped      bool    `json:"is_skipped"`
	TimeSpent      int     `json:"time_spent" validate:"min=0"`

	// IsCorrect is accepted for wire compatibility with older clients
	// but never trusted; correctness is recomputed from the stored
	// correct answer.
	IsCorrect *bool `json:"is_correct,omitempty"`
}

type RecordStatus string

const (
	RecordStatusSaved   RecordStatus = "saved"
	RecordStatusUpdated RecordStatus = "updated"
)

type RecordResponseResult struct {
	Status RecordStatus `json:"status"`
}

type SessionResponse struct {
	SessionID            string               `json:"session_id"`
	TestID               string               `json:"test_id"`
	TestKind             models.TestKind      `json:"test_kind"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	Status               models.SessionStatus `json:"status"`
	StartedAt            time.Time            `json:"started_at"`
	LastActivityAt       time.Time            `json:"last_activity_at"`
	Resumed              bool                 `json:"resumed"`
}

type ResponseSummary struct {
	QuestionID     string               `json:"question_id"`
	SelectedAnswer *models.AnswerOption `json:"selected_answer,omitempty"`
	IsCorrect      bool                 `json:"is_correct"`
	IsSkipped      bool                 `json:"is_skipped"`
	TimeSpent      int                  `json:"time_spent"`
}

type GetSessionResponse struct {
	ExistingSession bool              `json:"existing_session"`
	Session         *SessionResponse  `json:"session,omitempty"`
	Responses       []ResponseSummary `json:"responses,omitempty"`
}

// SessionHistoryItem is one row of a learner's attempt history, terminal
// or not.
type SessionHistoryItem struct {
	SessionID            string               `json:"session_id"`
	TestID               string               `json:"test_id"`
	TestKind             models.TestKind      `json:"test_kind"`
	Status               models.SessionStatus `json:"status"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	StartedAt            time.Time            `json:"started_at"`
	LastActivityAt       time.Time            `json:"last_activity_at"`
	EndedAt              *time.Time           `json:"ended_at,omitempty"`
	FinalScore           *int                 `json:"final_score,omitempty"`
	TotalTimeSpent       int                  `json:"total_time_spent"`
}

type SessionListResponse struct {
	Sessions []SessionHistoryItem `json:"sessions"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// ===== SCORING TYPES =====

type QuestionResultStatus string

const (
	ResultCorrect QuestionResultStatus = "correct"
	ResultWrong   QuestionResultStatus = "wrong"
	ResultSkipped QuestionResultStatus = "skipped"
)

type QuestionResult struct {
	QuestionID string                 `json:"question_id"`
	Content    string                 `json:"content"`
	Status     QuestionResultStatus   `json:"status"`
	Difficulty models.DifficultyLevel `json:"difficulty,omitempty"`
	TimeSpent  int                    `json:"time_spent"`
}

type SessionStats struct {
	SessionID string `json:"session_id"`

	Answered int `json:"answered"`
	Skipped  int `json:"skipped"`
	Correct  int `json:"correct"`
	Wrong    int `json:"wrong"`

	Accuracy int `json:"accuracy"` // percentage, 0 when nothing answered
	Score    int `json:"score"`

	TotalTime               int `json:"total_time"` // seconds
	AvgTimePerQuestion      int `json:"avg_time_per_question"`
	AvgTimePerCorrectAnswer int `json:"avg_time_per_correct_answer"`

	Breakdown []QuestionResult `json:"breakdown"`
}

type ResultExport struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
