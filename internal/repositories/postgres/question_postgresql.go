package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

func (q *QuestionPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]models.Question, error) {
	var questions []models.Question
	err := q.getDB(tx).WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order(`"order" ASC`).Order("id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ReplaceForAssessment deletes the current question set and inserts the new
// one. Callers run it inside a transaction.
func (q *QuestionPostgreSQL) ReplaceForAssessment(ctx context.Context, tx *gorm.DB, assessmentID string, questions []models.Question) error {
	db := q.getDB(tx).WithContext(ctx)

	if err := db.Where("assessment_id = ?", assessmentID).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	if len(questions) == 0 {
		return nil
	}

	for i := range questions {
		questions[i].AssessmentID = assessmentID
	}
	if err := db.Create(&questions).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}
