package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

// AlertEventData is the payload of a student.risk_alert event
type AlertEventData struct {
	AlertID string `json:"alert_id"`
	analytics.Alert
}

type alertService struct {
	repo      repositories.Repository
	engines   EngineSource
	publisher events.EventPublisher
	topic     string
	logger    *slog.Logger
	now       func() time.Time

	// serializes the read-propose-record cycle so two evaluations in this
	// process cannot both pass the same cooldown check
	mu sync.Mutex
}

func NewAlertService(repo repositories.Repository, engines EngineSource, publisher events.EventPublisher, topic string, logger *slog.Logger) AlertService {
	if topic == "" {
		topic = events.TopicAlerts
	}
	return &alertService{
		repo:      repo,
		engines:   engines,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *alertService) Evaluate(ctx context.Context, risks []analytics.RiskAssessment) ([]analytics.Alert, error) {
	if len(risks) == 0 {
		return []analytics.Alert{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	studentIDs := make([]string, 0, len(risks))
	for _, r := range risks {
		studentIDs = append(studentIDs, r.StudentID)
	}

	last, err := s.repo.AlertLog().LastAlerts(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to read alert log: %w", err)
	}

	alerts := s.engines.Engine().Risk.ProposeAlerts(risks, last, s.now().UTC())
	if len(alerts) == 0 {
		return alerts, nil
	}

	payloads := make([]AlertEventData, len(alerts))
	records := make([]models.AlertRecord, len(alerts))
	for i, a := range alerts {
		id := uuid.NewString()
		payloads[i] = AlertEventData{AlertID: id, Alert: a}
		records[i] = models.AlertRecord{
			AlertID:   id,
			StudentID: a.StudentID,
			Category:  string(a.Category),
			RiskLevel: string(a.RiskLevel),
			RiskScore: a.OverallRiskScore,
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		}
	}

	if err := s.repo.Alert().CreateBatch(ctx, nil, records); err != nil {
		return nil, fmt.Errorf("failed to store alerts: %w", err)
	}
	if err := s.repo.AlertLog().Record(ctx, alerts); err != nil {
		return nil, fmt.Errorf("failed to record alert cooldown: %w", err)
	}

	s.publish(ctx, payloads)

	s.logger.Info("Risk alerts raised", "count", len(alerts))
	return alerts, nil
}

// publish is best effort: the alert is already stored and the cooldown
// recorded, so a broker outage must not fail the request.
func (s *alertService) publish(ctx context.Context, payloads []AlertEventData) {
	if s.publisher == nil {
		return
	}

	batch := make([]events.Event, len(payloads))
	for i, p := range payloads {
		batch[i] = events.NewEvent(events.EventStudentRiskAlert, p)
	}
	if err := s.publisher.Publish(ctx, s.topic, batch...); err != nil {
		s.logger.Error("Failed to publish risk alerts",
			"topic", s.topic,
			"count", len(batch),
			"error", err)
	}
}
