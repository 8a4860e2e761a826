package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type TestKind string

const (
	TestKindTopic      TestKind = "topic"
	TestKindModule     TestKind = "module"
	TestKindSection    TestKind = "section"
	TestKindFullLength TestKind = "fulllength"
)

// TestSession is one learner's single attempt at one test. At most one
// session per (user, test) may be non-terminal at a time; the partial
// unique index created in pkg.MigrateDatabase enforces this.
type TestSession struct {
	ID       string   `json:"id" gorm:"primaryKey;size:36"`
	UserID   string   `json:"user_id" gorm:"not null;size:255;index:idx_sessions_user_test"`
	TestID   string   `json:"test_id" gorm:"not null;size:255;index:idx_sessions_user_test"`
	TestKind TestKind `json:"test_kind" gorm:"not null;size:20" validate:"required,test_kind"`

	CurrentQuestionIndex int           `json:"current_question_index" gorm:"not null;default:0" validate:"min=0"`
	Status               SessionStatus `json:"status" gorm:"not null;size:20;index" validate:"omitempty,session_status"`

	StartedAt      time.Time  `json:"started_at" gorm:"not null"`
	LastActivityAt time.Time  `json:"last_activity_at" gorm:"not null;index"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`

	// Terminal-only fields, written exactly once by the complete transition.
	FinalScore      *int           `json:"final_score,omitempty"`
	TotalTimeSpent  int            `json:"total_time_spent" gorm:"not null;default:0"` // seconds
	ResultBreakdown datatypes.JSON `json:"result_breakdown,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Responses []QuestionResponse `json:"responses,omitempty" gorm:"foreignKey:SessionID;references:ID"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}
