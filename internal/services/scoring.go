package services

import (
	"context"
	"fmt"
	"math"

	"github.com/prepdeck/testprep-service/internal/models"
	"github.com/prepdeck/testprep-service/internal/repositories"
	"github.com/prepdeck/testprep-service/internal/utils"
)

const breakdownSnippetLen = 80

type scoringEngine struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewScoringEngine(repo repositories.Repository, logger utils.Logger) ScoringEngine {
	return &scoringEngine{
		repo:   repo,
		logger: logger,
	}
}

// pointsForCounts is the scoring policy: one point per correct answer,
// one point deducted per wrong answer, skips contribute zero. Change it
// here, not in the aggregation below.
func pointsForCounts(correct, wrong int) int {
	return correct*1 - wrong*1
}

func roundDiv(total, count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(count)))
}

func (s *scoringEngine) Score(ctx context.Context, sessionID string) (*SessionStats, error) {
	responses, err := s.repo.Response().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	// The upsert keeps one row per question; dedup anyway in case the
	// underlying storage misbehaves, keeping the most recent write.
	latest := make(map[string]*models.QuestionResponse, len(responses))
	order := make([]string, 0, len(responses))
	for _, resp := range responses {
		if _, seen := latest[resp.QuestionID]; !seen {
			order = append(order, resp.QuestionID)
		}
		latest[resp.QuestionID] = resp
	}

	stats := &SessionStats{SessionID: sessionID}
	for _, qid := range order {
		resp := latest[qid]
		stats.TotalTime += resp.TimeSpent
		if resp.IsSkipped {
			stats.Skipped++
			continue
		}
		stats.Answered++
		if resp.IsCorrect {
			stats.Correct++
		}
	}
	stats.Wrong = stats.Answered - stats.Correct
	stats.Score = pointsForCounts(stats.Correct, stats.Wrong)
	stats.Accuracy = roundDiv(100*stats.Correct, stats.Answered)
	stats.AvgTimePerQuestion = roundDiv(stats.TotalTime, stats.Answered)
	stats.AvgTimePerCorrectAnswer = roundDiv(stats.TotalTime, stats.Correct)

	breakdown, err := s.buildBreakdown(ctx, order, latest)
	if err != nil {
		return nil, err
	}
	stats.Breakdown = breakdown

	return stats, nil
}

func (s *scoringEngine) buildBreakdown(ctx context.Context, order []string, latest map[string]*models.QuestionResponse) ([]QuestionResult, error) {
	questions, err := s.repo.Question().GetByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for breakdown: %w", err)
	}
	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	results := make([]QuestionResult, 0, len(order))
	for _, qid := range order {
		resp := latest[qid]
		result := QuestionResult{
			QuestionID: qid,
			TimeSpent:  resp.TimeSpent,
		}
		switch {
		case resp.IsSkipped:
			result.Status = ResultSkipped
		case resp.IsCorrect:
			result.Status = ResultCorrect
		default:
			result.Status = ResultWrong
		}
		if q, ok := byID[qid]; ok {
			result.Content = q.ContentSnippet(breakdownSnippetLen)
			result.Difficulty = q.Difficulty
		} else {
			s.logger.Warn("Question missing from store while building breakdown", "question_id", qid)
		}
		results = append(results, result)
	}
	return results, nil
}
