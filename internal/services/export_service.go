package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type resultExportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewResultExportService(repo repositories.Repository, logger utils.Logger) ResultExportService {
	return &resultExportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportResults renders the persisted result of a completed session as
// an xlsx workbook. Only the owner may export, and only once terminal
// scoring exists.
func (s *resultExportService) ExportResults(ctx context.Context, sessionID string, userID string) (*ResultExport, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, NewPermissionError(userID, sessionID, "session", "export_results", "not owned by user")
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrSessionNotCompleted
	}

	var breakdown []QuestionResult
	if len(session.ResultBreakdown) > 0 {
		if err := json.Unmarshal(session.ResultBreakdown, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode result breakdown: %w", err)
		}
	}

	data, err := s.renderWorkbook(session, breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exported session results", "session_id", sessionID, "user_id", userID)

	return &ResultExport{
		FileName:    fmt.Sprintf("session-results-%s.xlsx", sessionID),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func (s *resultExportService) renderWorkbook(session *models.TestSession, breakdown []QuestionResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	summaryRows := [][]interface{}{
		{"Session", session.ID},
		{"Test", session.TestID},
		{"Test kind", string(session.TestKind)},
		{"Started at", session.StartedAt.Format("2006-01-02 15:04:05")},
		{"Total time (s)", session.TotalTimeSpent},
	}
	if session.FinalScore != nil {
		summaryRows = append(summaryRows, []interface{}{"Final score", *session.FinalScore})
	}
	if session.EndedAt != nil {
		summaryRows = append(summaryRows, []interface{}{"Completed at", session.EndedAt.Format("2006-01-02 15:04:05")})
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	headerRow := len(summaryRows) + 2
	header := []interface{}{"Question", "Content", "Result", "Difficulty", "Time spent (s)"}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, err
	}
	for i, result := range breakdown {
		row := []interface{}{
			result.QuestionID,
			result.Content,
			string(result.Status),
			string(result.Difficulty),
			result.TimeSpent,
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
