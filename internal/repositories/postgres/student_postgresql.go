package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

func (s *StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *StudentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	err := s.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "grade", "teacher_id"}),
		}).
		Create(student).Error
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := s.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return nil, notFound(err, "student", id)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]models.Student, error) {
	var students []models.Student
	err := s.getDB(tx).WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}
