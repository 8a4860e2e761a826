package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/repositories"
)

type gormRepository struct {
	db         *gorm.DB
	session    repositories.SessionRepository
	response   repositories.ResponseRepository
	question   repositories.QuestionRepository
	enrollment repositories.EnrollmentRepository
	test       repositories.TestRepository
}

// NewRepository builds the PostgreSQL-backed repository aggregate around
// an explicitly constructed gorm handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:         db,
		session:    NewSessionPostgreSQL(db),
		response:   NewResponsePostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		enrollment: NewEnrollmentPostgreSQL(db),
		test:       NewTestPostgreSQL(db),
	}
}

func (r *gormRepository) Session() repositories.SessionRepository       { return r.session }
func (r *gormRepository) Response() repositories.ResponseRepository    { return r.response }
func (r *gormRepository) Question() repositories.QuestionRepository    { return r.question }
func (r *gormRepository) Enrollment() repositories.EnrollmentRepository { return r.enrollment }
func (r *gormRepository) Test() repositories.TestRepository             { return r.test }

func (r *gormRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
