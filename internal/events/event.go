package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "student-analytics"
	EventVersion = "1.0"
)

// Event types
const (
	EventStudentRiskAlert = "student.risk_alert"
	EventResultGraded     = "result.graded"
)

// Topics
const (
	TopicAlerts  = "analytics.alerts"
	TopicResults = "analytics.results"
)

// Event is the envelope every published message carries as JSON
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent stamps a payload with a fresh id and the current time
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher sends events to a topic
type EventPublisher interface {
	Publish(ctx context.Context, topic string, events ...Event) error
	Close() error
}
