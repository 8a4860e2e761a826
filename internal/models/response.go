package models

import "time"

// QuestionResponse records one learner's interaction with one question
// within a session. The (session_id, question_id) composite key makes
// resubmission an overwrite, never a duplicate row.
type QuestionResponse struct {
	SessionID  string `json:"session_id" gorm:"primaryKey;size:36"`
	QuestionID string `json:"question_id" gorm:"primaryKey;size:255"`

	// SelectedAnswer and IsCorrect are meaningful only when IsSkipped is
	// false; the recorder normalizes them to nil/false on skips.
	SelectedAnswer *AnswerOption `json:"selected_answer,omitempty" gorm:"size:1"`
	IsCorrect      bool          `json:"is_correct" gorm:"not null;default:false"`
	IsSkipped      bool          `json:"is_skipped" gorm:"not null;default:false"`
	TimeSpent      int           `json:"time_spent" gorm:"not null;default:0"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuestionResponse) TableName() string {
	return "question_responses"
}
