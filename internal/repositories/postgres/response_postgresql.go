package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

// Upsert writes the response in a single INSERT ... ON CONFLICT DO UPDATE
// so a double-submit (network retry) can never produce two rows or a
// lost update. The created flag only drives the saved/updated wording in
// the API response, so the separate existence check is not a correctness
// concern.
func (r *ResponsePostgreSQL) Upsert(ctx context.Context, response *models.QuestionResponse) (bool, error) {
	var found int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuestionResponse{}).
		Where("session_id = ? AND question_id = ?", response.SessionID, response.QuestionID).
		Count(&found).Error; err != nil {
		return false, err
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_answer", "is_correct", "is_skipped", "time_spent", "updated_at",
			}),
		}).
		Create(response).Error
	if err != nil {
		return false, err
	}
	return found == 0, nil
}

func (r *ResponsePostgreSQL) GetBySession(ctx context.Context, sessionID string) ([]*models.QuestionResponse, error) {
	var responses []*models.QuestionResponse
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("updated_at asc").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID string) (*models.QuestionResponse, error) {
	var response models.QuestionResponse
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		First(&response).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuestionResponse{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
