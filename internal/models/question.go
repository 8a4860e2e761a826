package models

import (
	"strings"
	"time"
)

// AnswerOption is the fixed option alphabet for a question.
type AnswerOption string

const (
	OptionA AnswerOption = "A"
	OptionB AnswerOption = "B"
	OptionC AnswerOption = "C"
	OptionD AnswerOption = "D"
)

// NormalizeAnswerOption uppercases and trims a submitted answer and
// reports whether it belongs to the option alphabet.
func NormalizeAnswerOption(raw string) (AnswerOption, bool) {
	opt := AnswerOption(strings.ToUpper(strings.TrimSpace(raw)))
	switch opt {
	case OptionA, OptionB, OptionC, OptionD:
		return opt, true
	}
	return "", false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Question is owned by the catalog service; this service reads it only
// for existence checks and correct-answer lookups.
type Question struct {
	ID      string `json:"id" gorm:"primaryKey;size:255"`
	Content string `json:"content" gorm:"type:text;not null"`

	OptionA string `json:"option_a" gorm:"type:text"`
	OptionB string `json:"option_b" gorm:"type:text"`
	OptionC string `json:"option_c" gorm:"type:text"`
	OptionD string `json:"option_d" gorm:"type:text"`

	CorrectAnswer AnswerOption    `json:"-" gorm:"not null;size:1"`
	Difficulty    DifficultyLevel `json:"difficulty" gorm:"size:10;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// ContentSnippet truncates question content for result breakdowns.
// Truncation counts runes, not bytes, so multi-byte characters are
// never split mid-sequence.
func (q Question) ContentSnippet(maxLen int) string {
	runes := []rune(q.Content)
	if len(runes) <= maxLen {
		return q.Content
	}
	return string(runes[:maxLen]) + "..."
}
