package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

type dashboardService struct {
	repo      repositories.Repository
	engines   EngineSource
	cache     *cache.CacheManager
	alerts    AlertService
	validator *validator.Validator
	logger    *slog.Logger
	workers   int
}

func NewDashboardService(
	repo repositories.Repository,
	engines EngineSource,
	cacheManager *cache.CacheManager,
	alerts AlertService,
	validator *validator.Validator,
	logger *slog.Logger,
	workers int,
) DashboardService {
	if workers <= 0 {
		workers = 1
	}
	return &dashboardService{
		repo:      repo,
		engines:   engines,
		cache:     cacheManager,
		alerts:    alerts,
		validator: validator,
		logger:    logger,
		workers:   workers,
	}
}

// classRoster is a teacher's students with their full result histories
type classRoster struct {
	students []models.Student
	results  []models.AssessmentResult
	byID     map[string][]models.AssessmentResult
}

// RiskSummary scores every student of the roster and aggregates the class
// view. The report is cached per teacher.
func (s *dashboardService) RiskSummary(ctx context.Context, teacherID string) (*ClassRiskReport, error) {
	var report ClassRiskReport
	err := s.cache.Summary.CacheOrExecute(ctx, cache.TeacherKey(teacherID), &report, cache.SummaryCacheConfig.TTL, func() (interface{}, error) {
		engine := s.engines.Engine()

		roster, err := s.loadRoster(ctx, teacherID)
		if err != nil {
			return nil, err
		}

		risks, err := s.assessAll(ctx, engine, roster)
		if err != nil {
			return nil, err
		}

		summary := engine.Risk.SummarizeClass(risks, roster.results)
		s.logger.Info("Class risk summary computed",
			"teacher_id", teacherID,
			"students", summary.TotalStudents,
			"high_risk", summary.HighRisk,
			"medium_risk", summary.MediumRisk)

		return ClassRiskReport{
			TeacherID: teacherID,
			Summary:   summary,
			Students:  risks,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Groups buckets the roster into competency groups. Query sizes override
// the configured limits for this call only.
func (s *dashboardService) Groups(ctx context.Context, teacherID string, query *GroupQuery) (*GroupsResponse, error) {
	if query == nil {
		query = &GroupQuery{}
	}
	if err := s.validator.Validate(query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if query.MinSize != nil && query.MaxSize != nil && *query.MinSize > *query.MaxSize {
		return nil, NewBusinessRuleError("group_size_range",
			"min_size cannot exceed max_size",
			map[string]interface{}{
				"min_size": *query.MinSize,
				"max_size": *query.MaxSize,
			})
	}

	roster, err := s.loadRoster(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	entries := make([]analytics.RosterEntry, len(roster.students))
	for i, st := range roster.students {
		entries[i] = analytics.RosterEntry{
			StudentID:   st.ID,
			StudentName: st.Name,
			Results:     roster.byID[st.ID],
		}
	}

	groups := s.engines.Engine().Grouper.GroupWithOptions(entries, analytics.GroupOptions{
		Subject:      query.Subject,
		MinGroupSize: query.MinSize,
		MaxGroupSize: query.MaxSize,
	})

	s.logger.Info("Competency groups built",
		"teacher_id", teacherID,
		"subject", query.Subject,
		"groups", len(groups))

	return &GroupsResponse{
		TeacherID: teacherID,
		Subject:   query.Subject,
		Groups:    groups,
	}, nil
}

// ScanAlerts re-assesses the whole roster and raises whatever alerts are
// due, for callers that want alerts without a new submission.
func (s *dashboardService) ScanAlerts(ctx context.Context, teacherID string) ([]analytics.Alert, error) {
	engine := s.engines.Engine()

	roster, err := s.loadRoster(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	risks, err := s.assessAll(ctx, engine, roster)
	if err != nil {
		return nil, err
	}

	alerts, err := s.alerts.Evaluate(ctx, risks)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Alert scan finished",
		"teacher_id", teacherID,
		"students", len(risks),
		"alerts", len(alerts))
	return alerts, nil
}

func (s *dashboardService) loadRoster(ctx context.Context, teacherID string) (*classRoster, error) {
	students, err := s.repo.Student().ListByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}

	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}

	results, err := s.repo.Result().ListByStudents(ctx, nil, ids, repositories.ResultFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list class results: %w", err)
	}

	byID := make(map[string][]models.AssessmentResult, len(students))
	for _, r := range results {
		byID[r.StudentID] = append(byID[r.StudentID], r)
	}

	return &classRoster{students: students, results: results, byID: byID}, nil
}

// assessAll scores each student on a bounded worker pool. Output order
// follows the roster.
func (s *dashboardService) assessAll(ctx context.Context, engine *analytics.Engine, roster *classRoster) ([]analytics.RiskAssessment, error) {
	risks := make([]analytics.RiskAssessment, len(roster.students))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, st := range roster.students {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			risk := engine.Risk.AssessRisk(roster.byID[st.ID])
			risk.StudentID = st.ID
			if st.Name != "" {
				risk.StudentName = st.Name
			}
			risks[i] = risk
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to assess class risk: %w", err)
	}
	return risks, nil
}
