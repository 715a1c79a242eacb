package services

import (
	"context"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type SubmissionRequest = validator.SubmissionRequest
type AssessmentRequest = validator.AssessmentRequest
type StudentRequest = validator.StudentRequest
type GroupQuery = validator.GroupQuery

// GradingResult is returned to the caller of a submission
type GradingResult struct {
	Result *models.AssessmentResult  `json:"result"`
	Risk   *analytics.RiskAssessment `json:"risk,omitempty"`
	Alerts []analytics.Alert         `json:"alerts"`
}

// StudentTrendResponse is the overall trend plus the per-subject breakdown
type StudentTrendResponse struct {
	StudentID string                   `json:"student_id"`
	Subject   string                   `json:"subject,omitempty"`
	Overall   analytics.TrendResult    `json:"overall"`
	Subjects  []analytics.SubjectTrend `json:"subjects"`
}

// ClassRiskReport is the teacher dashboard view of a roster
type ClassRiskReport struct {
	TeacherID string                     `json:"teacher_id"`
	Summary   analytics.ClassRiskSummary `json:"summary"`
	Students  []analytics.RiskAssessment `json:"students"`
}

// GroupsResponse wraps competency groups with the scope they were built for
type GroupsResponse struct {
	TeacherID string                   `json:"teacher_id"`
	Subject   string                   `json:"subject,omitempty"`
	Groups    []analytics.StudentGroup `json:"groups"`
}

// EngineSource hands out the current analytics snapshot. A caller reads it
// once per operation so a concurrent reload never mixes configurations.
type EngineSource interface {
	Engine() *analytics.Engine
}

// ===== SERVICE INTERFACES =====

type GradingService interface {
	GradeSubmission(ctx context.Context, assessmentID string, req *SubmissionRequest) (*GradingResult, error)
}

type AssessmentService interface {
	Register(ctx context.Context, assessmentID string, req *AssessmentRequest) (*models.Assessment, error)
	GetByID(ctx context.Context, assessmentID string) (*models.Assessment, error)
	ItemAnalysis(ctx context.Context, assessmentID string) (*analytics.AssessmentAnalysis, error)
}

type StudentService interface {
	Upsert(ctx context.Context, studentID string, req *StudentRequest) (*models.Student, error)
	Risk(ctx context.Context, studentID string) (*analytics.RiskAssessment, error)
	Trend(ctx context.Context, studentID, subject string) (*StudentTrendResponse, error)
	InterventionPlan(ctx context.Context, studentID string) (*analytics.InterventionPlan, error)
	Alerts(ctx context.Context, studentID string, params models.ListParams) (*models.PaginatedResponse, error)
}

type DashboardService interface {
	RiskSummary(ctx context.Context, teacherID string) (*ClassRiskReport, error)
	Groups(ctx context.Context, teacherID string, query *GroupQuery) (*GroupsResponse, error)
	ScanAlerts(ctx context.Context, teacherID string) ([]analytics.Alert, error)
}

// AlertService raises alerts for the risk levels it is given, honouring the
// per-category cooldown.
type AlertService interface {
	Evaluate(ctx context.Context, risks []analytics.RiskAssessment) ([]analytics.Alert, error)
}
