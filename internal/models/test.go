package models

import "time"

// Test is catalog-owned test metadata. The core reads it only to verify
// the test exists before opening a session.
type Test struct {
	ID            string   `json:"id" gorm:"primaryKey;size:255"`
	Title         string   `json:"title" gorm:"not null;size:255"`
	Kind          TestKind `json:"kind" gorm:"not null;size:20"`
	QuestionCount int      `json:"question_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Test) TableName() string {
	return "tests"
}
