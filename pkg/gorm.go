package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prepdeck/testprep-service/internal/config"
	"github.com/prepdeck/testprep-service/internal/models"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// MigrateDatabase creates the schema. The partial unique index is what
// enforces at-most-one non-terminal session per (user, test); gorm tags
// cannot express it, so it is created explicitly.
func MigrateDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Test{},
		&models.Question{},
		&models.Enrollment{},
		&models.TestSession{},
		&models.QuestionResponse{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_test_sessions_one_active
		 ON test_sessions (user_id, test_id)
		 WHERE status IN ('in_progress', 'paused')`,
	).Error; err != nil {
		return fmt.Errorf("failed to create active-session index: %w", err)
	}

	return nil
}
