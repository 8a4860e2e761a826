package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

// IsEnrolled checks for an active, unexpired enrollment. A lookup error
// is returned as-is so callers can distinguish "check failed" from
// "not enrolled".
func (e *EnrollmentPostgreSQL) IsEnrolled(ctx context.Context, userID, testID string) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.EnrollmentActive).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
