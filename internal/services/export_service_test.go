package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/prepdeck/testprep-service/internal/models"
)

func completedSession(id, userID string) *models.TestSession {
	started := time.Now().UTC().Add(-time.Hour)
	ended := time.Now().UTC()
	score := 4
	breakdown, _ := json.Marshal([]QuestionResult{
		{QuestionID: "q1", Content: "What is 2+2?", Status: ResultCorrect, Difficulty: models.DifficultyEasy, TimeSpent: 30},
		{QuestionID: "q2", Content: "Hard one", Status: ResultWrong, Difficulty: models.DifficultyHard, TimeSpent: 60},
		{QuestionID: "q3", Status: ResultSkipped},
	})
	return &models.TestSession{
		ID:              id,
		UserID:          userID,
		TestID:          "test-1",
		TestKind:        models.TestKindModule,
		Status:          models.SessionCompleted,
		StartedAt:       started,
		EndedAt:         &ended,
		FinalScore:      &score,
		TotalTimeSpent:  90,
		ResultBreakdown: breakdown,
	}
}

func TestResultExportService_ExportResults(t *testing.T) {
	ctx := context.Background()

	t.Run("exports completed session as workbook", func(t *testing.T) {
		session := completedSession("session-1", "user-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByID", mock.Anything, "session-1").Return(session, nil)

		svc := NewResultExportService(mockRepo, testLogger())
		export, err := svc.ExportResults(ctx, "session-1", "user-1")

		require.NoError(t, err)
		assert.Equal(t, "session-results-session-1.xlsx", export.FileName)
		assert.Equal(t, xlsxContentType, export.ContentType)
		require.NotEmpty(t, export.Data)

		// The workbook round-trips and carries the breakdown rows.
		f, err := excelize.OpenReader(bytes.NewReader(export.Data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Results")
		require.NoError(t, err)
		// 7 summary rows, blank spacer, header, 3 breakdown rows.
		assert.GreaterOrEqual(t, len(rows), 10)
		assert.Equal(t, "Session", rows[0][0])
		assert.Equal(t, "session-1", rows[0][1])
	})

	t.Run("requires authentication", func(t *testing.T) {
		svc := NewResultExportService(newMockRepository(), testLogger())
		_, err := svc.ExportResults(ctx, "session-1", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects unknown session", func(t *testing.T) {
		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		svc := NewResultExportService(mockRepo, testLogger())
		_, err := svc.ExportResults(ctx, "missing", "user-1")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("rejects foreign session", func(t *testing.T) {
		session := completedSession("session-1", "user-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByID", mock.Anything, "session-1").Return(session, nil)

		svc := NewResultExportService(mockRepo, testLogger())
		_, err := svc.ExportResults(ctx, "session-1", "intruder")
		assert.True(t, IsForbidden(err))
	})

	t.Run("rejects session that is still running", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByID", mock.Anything, "session-1").Return(session, nil)

		svc := NewResultExportService(mockRepo, testLogger())
		_, err := svc.ExportResults(ctx, "session-1", "user-1")
		assert.ErrorIs(t, err, ErrSessionNotCompleted)
		assert.True(t, IsConflict(err))
	})

	t.Run("rejects abandoned session", func(t *testing.T) {
		session := activeSession("session-1", "user-1", "test-1")
		session.Status = models.SessionAbandoned

		mockRepo := newMockRepository()
		mockRepo.sessionRepo.On("GetByID", mock.Anything, "session-1").Return(session, nil)

		svc := NewResultExportService(mockRepo, testLogger())
		_, err := svc.ExportResults(ctx, "session-1", "user-1")
		assert.ErrorIs(t, err, ErrSessionNotCompleted)
	})
}
