package repositories

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/prepdeck/testprep-service/internal/models"
)

// Repository aggregates the per-entity repositories behind one injected
// storage client. WithTransaction runs fn against a repository bound to
// a single transaction; returning an error rolls it back.
type Repository interface {
	Session() SessionRepository
	Response() ResponseRepository
	Question() QuestionRepository
	Enrollment() EnrollmentRepository
	Test() TestRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
}

// SessionRepository persists TestSession records, one per attempt.
type SessionRepository interface {
	Create(ctx context.Context, session *models.TestSession) error
	GetByID(ctx context.Context, id string) (*models.TestSession, error)
	// GetByIDForUpdate locks the session row for the enclosing
	// transaction, serializing complete against concurrent writers.
	GetByIDForUpdate(ctx context.Context, id string) (*models.TestSession, error)
	GetActiveSession(ctx context.Context, userID, testID string) (*models.TestSession, error)

	UpdateProgress(ctx context.Context, id string, questionIndex int, status models.SessionStatus, at time.Time) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, at time.Time, finalScore, totalTime int, breakdown datatypes.JSON) error
	Abandon(ctx context.Context, id string, at time.Time) error

	GetExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]*models.TestSession, error)
	ListByUser(ctx context.Context, userID string, filters SessionFilters) ([]*models.TestSession, int64, error)
}

// ResponseRepository persists one QuestionResponse per (session, question).
type ResponseRepository interface {
	// Upsert inserts or overwrites in a single atomic statement and
	// reports whether a new row was created.
	Upsert(ctx context.Context, response *models.QuestionResponse) (created bool, err error)
	GetBySession(ctx context.Context, sessionID string) ([]*models.QuestionResponse, error)
	GetBySessionAndQuestion(ctx context.Context, sessionID, questionID string) (*models.QuestionResponse, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

// QuestionRepository is the read-only question store contract.
type QuestionRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Question, error)
	GetCorrectAnswer(ctx context.Context, id string) (models.AnswerOption, error)
}

// EnrollmentRepository is the read-only entitlement predicate.
type EnrollmentRepository interface {
	IsEnrolled(ctx context.Context, userID, testID string) (bool, error)
}

// TestRepository is the read-only catalog lookup for tests.
type TestRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Test, error)
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	TestKind  *models.TestKind      `json:"test_kind"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "started_at", "last_activity_at"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}
