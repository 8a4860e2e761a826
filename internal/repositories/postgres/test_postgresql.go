package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func (t *TestPostgreSQL) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}
