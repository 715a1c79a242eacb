package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create stores a result together with its submitted answers
func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.AssessmentResult) error {
	if err := r.getDB(tx).WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentResult, error) {
	var result models.AssessmentResult
	if err := preloadAnswers(r.getDB(tx).WithContext(ctx)).First(&result, id).Error; err != nil {
		return nil, notFound(err, "result", id)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.ResultFilters) ([]models.AssessmentResult, error) {
	var results []models.AssessmentResult
	query := r.getDB(tx).WithContext(ctx).Where("student_id = ?", studentID)
	query = applyResultFilters(query, filters)

	if err := chronological(preloadAnswers(query)).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list results for student: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ListByStudents(ctx context.Context, tx *gorm.DB, studentIDs []string, filters repositories.ResultFilters) ([]models.AssessmentResult, error) {
	if len(studentIDs) == 0 {
		return []models.AssessmentResult{}, nil
	}

	var results []models.AssessmentResult
	query := r.getDB(tx).WithContext(ctx).Where("student_id IN ?", studentIDs)
	query = applyResultFilters(query, filters)

	if err := chronological(preloadAnswers(query)).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list results for students: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]models.AssessmentResult, error) {
	var results []models.AssessmentResult
	query := r.getDB(tx).WithContext(ctx).Where("assessment_id = ?", assessmentID)

	if err := chronological(preloadAnswers(query)).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list results for assessment: %w", err)
	}
	return results, nil
}
