package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []*models.Question
	if err := q.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetCorrectAnswer(ctx context.Context, id string) (models.AnswerOption, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Select("correct_answer").
		First(&question, "id = ?", id).Error; err != nil {
		return "", err
	}
	return question.CorrectAnswer, nil
}
