package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/prepdeck/testprep-service/internal/cache"
	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/utils"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.TestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.TestSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) GetActiveSession(ctx context.Context, userID, testID string) (*models.TestSession, error) {
	args := m.Called(ctx, userID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) UpdateProgress(ctx context.Context, id string, questionIndex int, status models.SessionStatus, at time.Time) error {
	args := m.Called(ctx, id, questionIndex, status, at)
	return args.Error(0)
}

func (m *MockSessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) Complete(ctx context.Context, id string, at time.Time, finalScore, totalTime int, breakdown datatypes.JSON) error {
	args := m.Called(ctx, id, at, finalScore, totalTime, breakdown)
	return args.Error(0)
}

func (m *MockSessionRepository) Abandon(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) GetExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]*models.TestSession, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.TestSession), args.Get(1).(int64), args.Error(2)
}

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Upsert(ctx context.Context, response *models.QuestionResponse) (bool, error) {
	args := m.Called(ctx, response)
	return args.Bool(0), args.Error(1)
}

func (m *MockResponseRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.QuestionResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuestionResponse), args.Error(1)
}

func (m *MockResponseRepository) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID string) (*models.QuestionResponse, error) {
	args := m.Called(ctx, sessionID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionResponse), args.Error(1)
}

func (m *MockResponseRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Question, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetCorrectAnswer(ctx context.Context, id string) (models.AnswerOption, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.AnswerOption), args.Error(1)
}

// MockEnrollmentRepository is a mock implementation of EnrollmentRepository
type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) IsEnrolled(ctx context.Context, userID, testID string) (bool, error) {
	args := m.Called(ctx, userID, testID)
	return args.Bool(0), args.Error(1)
}

// MockTestRepository is a mock implementation of TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id string) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

// MockRepository aggregates the sub-repository mocks. WithTransaction
// hands the same repository back so transactional paths exercise the
// same expectations as direct ones.
type MockRepository struct {
	sessionRepo    *MockSessionRepository
	responseRepo   *MockResponseRepository
	questionRepo   *MockQuestionRepository
	enrollmentRepo *MockEnrollmentRepository
	testRepo       *MockTestRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		sessionRepo:    &MockSessionRepository{},
		responseRepo:   &MockResponseRepository{},
		questionRepo:   &MockQuestionRepository{},
		enrollmentRepo: &MockEnrollmentRepository{},
		testRepo:       &MockTestRepository{},
	}
}

func (m *MockRepository) Session() repositories.SessionRepository       { return m.sessionRepo }
func (m *MockRepository) Response() repositories.ResponseRepository     { return m.responseRepo }
func (m *MockRepository) Question() repositories.QuestionRepository     { return m.questionRepo }
func (m *MockRepository) Enrollment() repositories.EnrollmentRepository { return m.enrollmentRepo }
func (m *MockRepository) Test() repositories.TestRepository             { return m.testRepo }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) assertExpectations(t mock.TestingT) {
	m.sessionRepo.AssertExpectations(t)
	m.responseRepo.AssertExpectations(t)
	m.questionRepo.AssertExpectations(t)
	m.enrollmentRepo.AssertExpectations(t)
	m.testRepo.AssertExpectations(t)
}

// recordingCache satisfies cache.CacheService, always misses on Get,
// and records keys and patterns passed to the invalidation methods.
type recordingCache struct {
	deletedKeys     []string
	deletedPatterns []string
}

func newRecordingCache() *recordingCache { return &recordingCache{} }

func (r *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (r *recordingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}

func (r *recordingCache) Delete(ctx context.Context, key string) error {
	r.deletedKeys = append(r.deletedKeys, key)
	return nil
}

func (r *recordingCache) DeletePattern(ctx context.Context, pattern string) error {
	r.deletedPatterns = append(r.deletedPatterns, pattern)
	return nil
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestValidator() *utils.Validator {
	return utils.NewValidator()
}

func stringPtr(s string) *string { return &s }
