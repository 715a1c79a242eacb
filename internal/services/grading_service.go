package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

// ResultGradedData is the payload of a result.graded event
type ResultGradedData struct {
	ResultID     uint                `json:"result_id"`
	StudentID    string              `json:"student_id"`
	AssessmentID string              `json:"assessment_id"`
	Subject      string              `json:"subject"`
	Status       models.ResultStatus `json:"status"`
	Score        int                 `json:"score"`
	MaxScore     int                 `json:"max_score"`
	Percentage   float64             `json:"percentage"`
	CompletedAt  time.Time           `json:"completed_at"`
}

type gradingService struct {
	repo      repositories.Repository
	engines   EngineSource
	cache     *cache.CacheManager
	publisher events.EventPublisher
	alerts    AlertService
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewGradingService(
	repo repositories.Repository,
	engines EngineSource,
	cacheManager *cache.CacheManager,
	publisher events.EventPublisher,
	alerts AlertService,
	validator *validator.Validator,
	logger *slog.Logger,
) GradingService {
	return &gradingService{
		repo:      repo,
		engines:   engines,
		cache:     cacheManager,
		publisher: publisher,
		alerts:    alerts,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// GradeSubmission scores every answer against the assessment's question
// bank, stores the result and re-evaluates the student's risk.
func (s *gradingService) GradeSubmission(ctx context.Context, assessmentID string, req *SubmissionRequest) (*GradingResult, error) {
	s.logger.Info("Grading submission",
		"assessment_id", assessmentID,
		"student_id", req.StudentID,
		"answers", len(req.Answers))

	if err := s.validator.ValidateSubmission(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if len(assessment.Questions) == 0 {
		return nil, NewBusinessRuleError("assessment_has_questions",
			"assessment has no questions to grade against",
			map[string]interface{}{"assessment_id": assessmentID})
	}

	// one snapshot for scoring and the risk pass that follows
	engine := s.engines.Engine()

	result, err := s.score(engine, assessment, req)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := s.ensureStudent(ctx, tx, assessment, req); err != nil {
			return err
		}
		return tx.Result().Create(ctx, nil, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	cache.InvalidateForResult(ctx, s.cache, assessmentID, req.StudentID)
	s.publishGraded(ctx, result)

	s.logger.Info("Submission graded",
		"result_id", result.ID,
		"student_id", result.StudentID,
		"score", result.Score,
		"max_score", result.MaxScore,
		"percentage", result.Percentage)

	graded := &GradingResult{Result: result, Alerts: []analytics.Alert{}}

	// the result is stored at this point; risk and alerts are reported
	// alongside it but never fail the submission
	risk, err := s.refreshRisk(ctx, engine, req.StudentID)
	if err != nil {
		s.logger.Warn("Failed to re-assess student risk", "student_id", req.StudentID, "error", err)
		return graded, nil
	}
	graded.Risk = risk

	if s.alerts != nil {
		alerts, err := s.alerts.Evaluate(ctx, []analytics.RiskAssessment{*risk})
		if err != nil {
			s.logger.Warn("Failed to evaluate risk alerts", "student_id", req.StudentID, "error", err)
		} else {
			graded.Alerts = alerts
		}
	}

	return graded, nil
}

func (s *gradingService) score(engine *analytics.Engine, assessment *models.Assessment, req *SubmissionRequest) (*models.AssessmentResult, error) {
	status := req.Status
	if status == "" {
		status = models.ResultCompleted
	}
	completedAt := s.now().UTC()
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}
	grade := req.Grade
	if grade == "" {
		grade = assessment.Grade
	}

	raw := make([]analytics.RawAnswer, len(req.Answers))
	for i, a := range req.Answers {
		raw[i] = analytics.RawAnswer{QuestionID: a.QuestionID, Answer: a.Answer}
	}

	scored, err := engine.Scorer.ScoreSubmission(models.NewQuestionBank(assessment.Questions), raw, assessment.Subject)
	if err != nil {
		var unknown *analytics.UnknownQuestionError
		if errors.As(err, &unknown) {
			return nil, NewBusinessRuleError("known_question",
				"answer references a question that is not part of the assessment",
				map[string]interface{}{
					"assessment_id": assessment.ID,
					"question_id":   unknown.QuestionID,
				})
		}
		return nil, fmt.Errorf("failed to score submission: %w", err)
	}

	return &models.AssessmentResult{
		StudentID:    req.StudentID,
		StudentName:  req.StudentName,
		AssessmentID: assessment.ID,
		Subject:      assessment.Subject,
		Grade:        grade,
		Status:       status,
		Score:        scored.Score,
		MaxScore:     scored.MaxScore,
		Percentage:   scored.Percentage,
		CompletedAt:  completedAt,
		Answers:      scored.Answers,
	}, nil
}

// ensureStudent adds an unknown student to the assessment owner's roster and
// refreshes the display name of a known one.
func (s *gradingService) ensureStudent(ctx context.Context, tx repositories.Repository, assessment *models.Assessment, req *SubmissionRequest) error {
	student, err := tx.Student().GetByID(ctx, nil, req.StudentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return err
	}

	if student == nil {
		return tx.Student().Upsert(ctx, nil, &models.Student{
			ID:        req.StudentID,
			Name:      req.StudentName,
			Grade:     req.Grade,
			TeacherID: assessment.TeacherID,
		})
	}

	if req.StudentName == "" || req.StudentName == student.Name {
		return nil
	}
	student.Name = req.StudentName
	return tx.Student().Upsert(ctx, nil, student)
}

func (s *gradingService) refreshRisk(ctx context.Context, engine *analytics.Engine, studentID string) (*analytics.RiskAssessment, error) {
	history, name, err := loadStudentHistory(ctx, s.repo, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	risk := assessStudentRisk(engine, studentID, name, history)
	if err := s.cache.Risk.Set(ctx, cache.StudentKey(studentID), risk, cache.RiskCacheConfig.TTL); err != nil {
		s.logger.Warn("Failed to cache risk assessment", "student_id", studentID, "error", err)
	}
	return &risk, nil
}

func (s *gradingService) publishGraded(ctx context.Context, result *models.AssessmentResult) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(events.EventResultGraded, ResultGradedData{
		ResultID:     result.ID,
		StudentID:    result.StudentID,
		AssessmentID: result.AssessmentID,
		Subject:      result.Subject,
		Status:       result.Status,
		Score:        result.Score,
		MaxScore:     result.MaxScore,
		Percentage:   result.Percentage,
		CompletedAt:  result.CompletedAt,
	})
	if err := s.publisher.Publish(ctx, events.TopicResults, event); err != nil {
		s.logger.Error("Failed to publish result event",
			"result_id", result.ID,
			"error", err)
	}
}
