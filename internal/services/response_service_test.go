package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/cache"
	"github.com/prepdeck/testprep-service/internal/models"
)

func newResponseServiceForTest(repo *MockRepository) ResponseService {
	return NewResponseService(repo, cache.NewNoopCache(), testLogger(), newTestValidator())
}

func TestResponseService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		svc := newResponseServiceForTest(newMockRepository())
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A")}
		_, err := svc.Record(ctx, "session-1", req, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects answer outside the option alphabet", func(t *testing.T) {
		svc := newResponseServiceForTest(newMockRepository())
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("E"), TimeSpent: 10}
		_, err := svc.Record(ctx, "session-1", req, "user-1")
		assert.ErrorIs(t, err, ErrInvalidAnswerFormat)
	})

	t.Run("rejects missing answer when not skipped", func(t *testing.T) {
		svc := newResponseServiceForTest(newMockRepository())
		req := &RecordResponseRequest{QuestionID: "q1", TimeSpent: 10}
		_, err := svc.Record(ctx, "session-1", req, "user-1")
		assert.ErrorIs(t, err, ErrInvalidAnswerFormat)
	})

	t.Run("computes correctness server-side and ignores client claim", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")
		clientClaim := true // lies: the submitted answer is wrong

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)
		mockRepo.questionRepo.On("GetCorrectAnswer", mock.Anything, "q1").Return(models.OptionC, nil)
		mockRepo.responseRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *models.QuestionResponse) bool {
			return r.QuestionID == "q1" &&
				r.SelectedAnswer != nil && *r.SelectedAnswer == models.OptionA &&
				!r.IsCorrect && !r.IsSkipped
		})).Return(true, nil)
		mockRepo.sessionRepo.On("TouchActivity", mock.Anything, "session-1", mock.Anything).Return(nil)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{
			QuestionID:     "q1",
			SelectedAnswer: stringPtr("A"),
			TimeSpent:      25,
			IsCorrect:      &clientClaim,
		}
		result, err := svc.Record(ctx, "session-1", req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, RecordStatusSaved, result.Status)
		mockRepo.assertExpectations(t)
	})

	t.Run("normalizes lowercase answers", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)
		mockRepo.questionRepo.On("GetCorrectAnswer", mock.Anything, "q1").Return(models.OptionB, nil)
		mockRepo.responseRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *models.QuestionResponse) bool {
			return r.SelectedAnswer != nil && *r.SelectedAnswer == models.OptionB && r.IsCorrect
		})).Return(true, nil)
		mockRepo.sessionRepo.On("TouchActivity", mock.Anything, "session-1", mock.Anything).Return(nil)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr(" b "), TimeSpent: 15}
		result, err := svc.Record(ctx, "session-1", req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, RecordStatusSaved, result.Status)
	})

	t.Run("skip clears answer and correctness", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)
		mockRepo.questionRepo.On("Exists", mock.Anything, "q1").Return(true, nil)
		mockRepo.responseRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *models.QuestionResponse) bool {
			return r.IsSkipped && r.SelectedAnswer == nil && !r.IsCorrect
		})).Return(true, nil)
		mockRepo.sessionRepo.On("TouchActivity", mock.Anything, "session-1", mock.Anything).Return(nil)

		svc := newResponseServiceForTest(mockRepo)
		// A skip submitted together with an answer still clears it.
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A"), IsSkipped: true}
		result, err := svc.Record(ctx, "session-1", req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, RecordStatusSaved, result.Status)
		mockRepo.questionRepo.AssertNotCalled(t, "GetCorrectAnswer", mock.Anything, mock.Anything)
	})

	t.Run("resubmission reports updated", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)
		mockRepo.questionRepo.On("GetCorrectAnswer", mock.Anything, "q1").Return(models.OptionA, nil)
		mockRepo.responseRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)
		mockRepo.sessionRepo.On("TouchActivity", mock.Anything, "session-1", mock.Anything).Return(nil)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A"), TimeSpent: 30}
		result, err := svc.Record(ctx, "session-1", req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, RecordStatusUpdated, result.Status)
	})

	t.Run("rejects unknown question", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)
		mockRepo.questionRepo.On("GetCorrectAnswer", mock.Anything, "missing").
			Return(models.AnswerOption(""), gorm.ErrRecordNotFound)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{QuestionID: "missing", SelectedAnswer: stringPtr("A")}
		_, err := svc.Record(ctx, "session-1", req, "user-1")
		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("rejects terminal session", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")
		session.Status = models.SessionCompleted

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A")}
		_, err := svc.Record(ctx, "session-1", req, "user-1")

		assert.ErrorIs(t, err, ErrSessionTerminal)
		mockRepo.responseRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("rejects foreign session", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByIDForUpdate", mock.Anything, "session-1").Return(session, nil)

		svc := newResponseServiceForTest(mockRepo)
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A")}
		_, err := svc.Record(ctx, "session-1", req, "intruder")
		assert.True(t, IsForbidden(err))
	})

	t.Run("rejects negative time spent", func(t *testing.T) {
		svc := newResponseServiceForTest(newMockRepository())
		req := &RecordResponseRequest{QuestionID: "q1", SelectedAnswer: stringPtr("A"), TimeSpent: -5}
		_, err := svc.Record(ctx, "session-1", req, "user-1")
		assert.True(t, IsValidation(err))
	})
}
