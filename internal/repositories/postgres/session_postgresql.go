package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByIDForUpdate(ctx context.Context, id string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetActiveSession(ctx context.Context, userID, testID string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status IN ?", userID, testID,
			[]models.SessionStatus{models.SessionInProgress, models.SessionPaused}).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) UpdateProgress(ctx context.Context, id string, questionIndex int, status models.SessionStatus, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.TestSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_question_index": questionIndex,
			"status":                 status,
			"last_activity_at":       at,
		}).Error
}

func (s *SessionPostgreSQL) TouchActivity(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.TestSession{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

func (s *SessionPostgreSQL) Complete(ctx context.Context, id string, at time.Time, finalScore, totalTime int, breakdown datatypes.JSON) error {
	return s.db.WithContext(ctx).Model(&models.TestSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.SessionCompleted,
			"ended_at":         at,
			"last_activity_at": at,
			"final_score":      finalScore,
			"total_time_spent": totalTime,
			"result_breakdown": breakdown,
		}).Error
}

func (s *SessionPostgreSQL) Abandon(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.TestSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.SessionAbandoned,
			"ended_at":         at,
			"last_activity_at": at,
		}).Error
}

func (s *SessionPostgreSQL) GetExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]*models.TestSession, error) {
	var sessions []*models.TestSession
	query := s.db.WithContext(ctx).
		Where("status IN ? AND last_activity_at <= ?",
			[]models.SessionStatus{models.SessionInProgress, models.SessionPaused}, cutoff).
		Order("last_activity_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	var sessions []*models.TestSession
	var total int64

	query := s.db.WithContext(ctx).Model(&models.TestSession{}).Where("user_id = ?", userID)
	query = s.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.applyPaginationAndSort(query, filters)
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s *SessionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TestKind != nil {
		query = query.Where("test_kind = ?", *filters.TestKind)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

func (s *SessionPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "started_at", "last_activity_at":
	default:
		sortBy = "started_at"
	}
	order := "desc"
	if filters.SortOrder == "asc" {
		order = "asc"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
