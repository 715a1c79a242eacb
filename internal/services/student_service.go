package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

type studentService struct {
	repo      repositories.Repository
	engines   EngineSource
	cache     *cache.CacheManager
	validator *validator.Validator
	logger    *slog.Logger
}

func NewStudentService(
	repo repositories.Repository,
	engines EngineSource,
	cacheManager *cache.CacheManager,
	validator *validator.Validator,
	logger *slog.Logger,
) StudentService {
	return &studentService{
		repo:      repo,
		engines:   engines,
		cache:     cacheManager,
		validator: validator,
		logger:    logger,
	}
}

func (s *studentService) Upsert(ctx context.Context, studentID string, req *StudentRequest) (*models.Student, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	student := &models.Student{
		ID:        studentID,
		Name:      req.Name,
		Grade:     req.Grade,
		TeacherID: req.TeacherID,
	}
	if err := s.repo.Student().Upsert(ctx, nil, student); err != nil {
		return nil, err
	}

	// roster membership feeds every class view
	cache.SafeDelete(ctx, s.cache.Risk, cache.StudentKey(studentID))
	cache.SafeInvalidatePattern(ctx, s.cache.Summary, "teacher:*")

	s.logger.Info("Student upserted", "student_id", studentID, "teacher_id", req.TeacherID)
	return student, nil
}

// Risk is cached per student and dropped whenever a new result arrives
func (s *studentService) Risk(ctx context.Context, studentID string) (*analytics.RiskAssessment, error) {
	var risk analytics.RiskAssessment
	err := s.cache.Risk.CacheOrExecute(ctx, cache.StudentKey(studentID), &risk, cache.RiskCacheConfig.TTL, func() (interface{}, error) {
		history, name, err := s.history(ctx, studentID)
		if err != nil {
			return nil, err
		}
		return assessStudentRisk(s.engines.Engine(), studentID, name, history), nil
	})
	if err != nil {
		return nil, err
	}
	return &risk, nil
}

// Trend classifies the overall history and each subject. A non-empty
// subject narrows both to that subject, compared case-insensitively.
func (s *studentService) Trend(ctx context.Context, studentID, subject string) (*StudentTrendResponse, error) {
	history, _, err := s.history(ctx, studentID)
	if err != nil {
		return nil, err
	}

	subject = strings.TrimSpace(subject)
	if subject != "" {
		scoped := make([]models.AssessmentResult, 0, len(history))
		for _, r := range history {
			if strings.EqualFold(r.Subject, subject) {
				scoped = append(scoped, r)
			}
		}
		history = scoped
	}

	trends := s.engines.Engine().Trends
	return &StudentTrendResponse{
		StudentID: studentID,
		Subject:   subject,
		Overall:   trends.ClassifyResults(history),
		Subjects:  trends.SubjectTrends(history),
	}, nil
}

func (s *studentService) InterventionPlan(ctx context.Context, studentID string) (*analytics.InterventionPlan, error) {
	history, name, err := s.history(ctx, studentID)
	if err != nil {
		return nil, err
	}

	engine := s.engines.Engine()
	risk := engine.Risk.AssessRisk(history)
	snapshot := engine.Planner.BuildContext(history, &risk)
	snapshot.StudentID = studentID
	if name != "" {
		snapshot.StudentName = name
	}

	plan := engine.Planner.Plan(snapshot)
	s.logger.Info("Intervention plan built",
		"student_id", studentID,
		"interventions", len(plan.Interventions))
	return &plan, nil
}

func (s *studentService) Alerts(ctx context.Context, studentID string, params models.ListParams) (*models.PaginatedResponse, error) {
	params.Normalize()
	if err := s.validator.Validate(&params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	records, total, err := s.repo.Alert().ListByStudent(ctx, nil, studentID, params)
	if err != nil {
		return nil, err
	}

	page := models.NewPaginatedResponse(records, len(records), total, params)
	return &page, nil
}

// history loads the student's results oldest first together with the roster
// name. A student with neither a roster entry nor any result is unknown.
func (s *studentService) history(ctx context.Context, studentID string) ([]models.AssessmentResult, string, error) {
	return loadStudentHistory(ctx, s.repo, studentID)
}

func loadStudentHistory(ctx context.Context, repo repositories.Repository, studentID string) ([]models.AssessmentResult, string, error) {
	var name string
	student, err := repo.Student().GetByID(ctx, nil, studentID)
	switch {
	case err == nil:
		name = student.Name
	case !repositories.IsNotFoundError(err):
		return nil, "", fmt.Errorf("failed to get student: %w", err)
	}

	history, err := repo.Result().ListByStudent(ctx, nil, studentID, repositories.ResultFilters{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list results: %w", err)
	}

	if student == nil && len(history) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	return history, name, nil
}

// assessStudentRisk is the single place a cached risk is built, so every
// writer stores the same roster identity.
func assessStudentRisk(engine *analytics.Engine, studentID, name string, history []models.AssessmentResult) analytics.RiskAssessment {
	assessment := engine.Risk.AssessRisk(history)
	assessment.StudentID = studentID
	if name != "" {
		assessment.StudentName = name
	}
	return assessment
}
