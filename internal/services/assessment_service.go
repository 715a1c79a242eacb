package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	engines   EngineSource
	cache     *cache.CacheManager
	validator *validator.Validator
	logger    *slog.Logger
}

func NewAssessmentService(
	repo repositories.Repository,
	engines EngineSource,
	cacheManager *cache.CacheManager,
	validator *validator.Validator,
	logger *slog.Logger,
) AssessmentService {
	return &assessmentService{
		repo:      repo,
		engines:   engines,
		cache:     cacheManager,
		validator: validator,
		logger:    logger,
	}
}

// Register creates or updates an assessment with its full question set.
// Once results exist the question set is frozen, since stored answers were
// graded against it; metadata can still change.
func (s *assessmentService) Register(ctx context.Context, assessmentID string, req *AssessmentRequest) (*models.Assessment, error) {
	s.logger.Info("Registering assessment",
		"assessment_id", assessmentID,
		"teacher_id", req.TeacherID,
		"questions", len(req.Questions))

	if err := s.validator.ValidateAssessment(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	questions := buildQuestions(assessmentID, req.Questions)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Assessment().GetByID(ctx, nil, assessmentID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return err
		}

		if existing != nil {
			count, err := tx.Assessment().CountResults(ctx, nil, assessmentID)
			if err != nil {
				return err
			}
			if count > 0 && !sameQuestions(existing.Questions, questions) {
				return NewBusinessRuleError("questions_frozen",
					"questions cannot change once results have been recorded",
					map[string]interface{}{
						"assessment_id": assessmentID,
						"results":       count,
					})
			}
		}

		if err := tx.Assessment().Upsert(ctx, nil, &models.Assessment{
			ID:        assessmentID,
			Title:     req.Title,
			Subject:   req.Subject,
			Grade:     req.Grade,
			TeacherID: req.TeacherID,
		}); err != nil {
			return err
		}
		return tx.Question().ReplaceForAssessment(ctx, nil, assessmentID, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register assessment: %w", err)
	}

	cache.SafeDelete(ctx, s.cache.Analysis, cache.AssessmentKey(assessmentID))

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload assessment: %w", err)
	}

	s.logger.Info("Assessment registered",
		"assessment_id", assessmentID,
		"total_points", assessment.TotalPoints)
	return assessment, nil
}

func (s *assessmentService) GetByID(ctx context.Context, assessmentID string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// ItemAnalysis returns per-question difficulty and discrimination for every
// result recorded against the assessment. The report is cached until the
// next result arrives.
func (s *assessmentService) ItemAnalysis(ctx context.Context, assessmentID string) (*analytics.AssessmentAnalysis, error) {
	var analysis analytics.AssessmentAnalysis
	err := s.cache.Analysis.CacheOrExecute(ctx, cache.AssessmentKey(assessmentID), &analysis, cache.AnalysisCacheConfig.TTL, func() (interface{}, error) {
		assessment, err := s.GetByID(ctx, assessmentID)
		if err != nil {
			return nil, err
		}

		results, err := s.repo.Result().ListByAssessment(ctx, nil, assessmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list results: %w", err)
		}

		report := s.engines.Engine().Items.Analyze(assessmentID, results, assessment.Questions)
		s.logger.Info("Item analysis computed",
			"assessment_id", assessmentID,
			"results", len(results),
			"flags", len(report.Flags))
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func buildQuestions(assessmentID string, inputs []validator.QuestionInput) []models.Question {
	questions := make([]models.Question, len(inputs))
	for i, in := range inputs {
		questions[i] = models.Question{
			ID:                   in.ID,
			AssessmentID:         assessmentID,
			Type:                 models.QuestionType(in.Type),
			Text:                 in.Text,
			Options:              in.Options,
			CorrectAnswer:        in.CorrectAnswer,
			Order:                i + 1,
			Points:               in.Points,
			SimilarityThreshold:  in.SimilarityThreshold,
			FuzzyMatchingEnabled: in.FuzzyMatchingEnabled,
		}
	}
	return questions
}

// sameQuestions compares the fields grading depends on
func sameQuestions(stored, incoming []models.Question) bool {
	if len(stored) != len(incoming) {
		return false
	}
	byID := models.NewQuestionBank(stored)
	for _, q := range incoming {
		old, ok := byID[q.ID]
		if !ok || old.Type != q.Type || old.CorrectAnswer != q.CorrectAnswer || old.Points != q.Points {
			return false
		}
	}
	return true
}
