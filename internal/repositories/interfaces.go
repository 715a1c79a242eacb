package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/models"
)

// ErrNotFound is returned (wrapped) when a record does not exist
var ErrNotFound = errors.New("record not found")

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type ResultFilters struct {
	Subject  *string              `json:"subject"`
	Status   *models.ResultStatus `json:"status"`
	DateFrom *time.Time           `json:"date_from"`
	DateTo   *time.Time           `json:"date_to"`
}

// ===== REPOSITORY INTERFACES =====

// ResultRepository stores assessment results. Results are append-only, so
// there is no update or delete.
type ResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.AssessmentResult) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentResult, error)

	// List operations preload the submitted answers
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters ResultFilters) ([]models.AssessmentResult, error)
	ListByStudents(ctx context.Context, tx *gorm.DB, studentIDs []string, filters ResultFilters) ([]models.AssessmentResult, error)
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]models.AssessmentResult, error)
}

type QuestionRepository interface {
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]models.Question, error)
	// ReplaceForAssessment swaps the whole question set of an assessment
	ReplaceForAssessment(ctx context.Context, tx *gorm.DB, assessmentID string, questions []models.Question) error
}

type AssessmentRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assessment, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]models.Assessment, error)
	CountResults(ctx context.Context, tx *gorm.DB, id string) (int64, error)
}

type StudentRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]models.Student, error)
}

// AlertRepository keeps the durable alert history
type AlertRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, records []models.AlertRecord) error
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, params models.ListParams) ([]models.AlertRecord, int64, error)
}

// AlertLog answers "when was this alert last raised" for the cooldown
// check. It is a fast key/value lookup, separate from the alert history.
type AlertLog interface {
	LastAlerts(ctx context.Context, studentIDs []string) (map[analytics.AlertKey]time.Time, error)
	Record(ctx context.Context, alerts []analytics.Alert) error
}
