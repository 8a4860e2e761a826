package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher publishes session lifecycle events. Publishing is
// advisory: the state machine logs failures but never rolls back a
// transition because of one.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishSessionEvent publishes a session lifecycle event to Kafka
func (p *KafkaEventPublisher) PublishSessionEvent(ctx context.Context, event *SessionEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish session event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	p.logger.Info("Published session event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is an in-memory implementation for tests and for
// running without a broker.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []SessionEvent
	logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]SessionEvent, 0),
		logger: logger,
	}
}

// PublishSessionEvent stores the event in memory
func (m *MockEventPublisher) PublishSessionEvent(ctx context.Context, event *SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	m.logger.Info("Mock: Published session event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// GetPublishedEvents returns a copy of everything published so far
func (m *MockEventPublisher) GetPublishedEvents() []SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents discards recorded events
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}
