package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

func (a *AssessmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert creates the assessment or overwrites its metadata. The question set
// is managed by the question repository.
func (a *AssessmentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	err := a.getDB(tx).WithContext(ctx).
		Omit("Questions").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "subject", "grade", "teacher_id", "updated_at"}),
		}).
		Create(assessment).Error
	if err != nil {
		return fmt.Errorf("failed to upsert assessment: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.getDB(tx).WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC`).Order("id ASC")
		}).
		Where("id = ?", id).
		First(&assessment).Error
	if err != nil {
		return nil, notFound(err, "assessment", id)
	}

	assessment.QuestionsCount = len(assessment.Questions)
	for _, q := range assessment.Questions {
		assessment.TotalPoints += q.Points
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := a.getDB(tx).WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at ASC").Order("id ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}

func (a *AssessmentPostgreSQL) CountResults(ctx context.Context, tx *gorm.DB, id string) (int64, error) {
	var count int64
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.AssessmentResult{}).
		Where("assessment_id = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}
