package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the session lifecycle events other services
// subscribe to (progress dashboards, email notifications).
type EventType string

const (
	EventSessionCompleted EventType = "session.completed"
	EventSessionAbandoned EventType = "session.abandoned"
)

const (
	eventSource  = "testprep-service"
	eventVersion = "1.0"
)

// SessionEvent is the envelope for all session lifecycle events.
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionCompletedEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	TestID    string `json:"test_id"`
	Score     int    `json:"score"`
	Accuracy  int    `json:"accuracy"`
	TotalTime int    `json:"total_time"`
}

type SessionAbandonedEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	TestID    string `json:"test_id"`
}

func newEnvelope(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewSessionCompletedEvent(sessionID, userID, testID string, score, accuracy, totalTime int) *SessionEvent {
	return newEnvelope(EventSessionCompleted, SessionCompletedEvent{
		SessionID: sessionID,
		UserID:    userID,
		TestID:    testID,
		Score:     score,
		Accuracy:  accuracy,
		TotalTime: totalTime,
	})
}

func NewSessionAbandonedEvent(sessionID, userID, testID string) *SessionEvent {
	return newEnvelope(EventSessionAbandoned, SessionAbandonedEvent{
		SessionID: sessionID,
		UserID:    userID,
		TestID:    testID,
	})
}
