package validator

import (
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
)

// AnswerInput is one raw answer of a submission
type AnswerInput struct {
	QuestionID string `json:"question_id" validate:"required,max=64"`
	Answer     string `json:"answer" validate:"max=2000"`
}

// SubmissionRequest carries a finished (or missed) attempt to be graded
type SubmissionRequest struct {
	StudentID   string              `json:"student_id" validate:"required,max=64"`
	StudentName string              `json:"student_name" validate:"omitempty,max=255"`
	Grade       string              `json:"grade" validate:"omitempty,max=32"`
	Status      models.ResultStatus `json:"status" validate:"omitempty,result_status"`
	CompletedAt *time.Time          `json:"completed_at" validate:"omitempty,not_future"`
	Answers     []AnswerInput       `json:"answers" validate:"max=500,dive"`
}

// QuestionInput is a published question definition
type QuestionInput struct {
	ID                   string   `json:"id" validate:"required,max=64"`
	Type                 string   `json:"type" validate:"required,question_type"`
	Text                 string   `json:"text" validate:"omitempty,max=2000"`
	Options              []string `json:"options" validate:"omitempty,max=20,dive,max=500"`
	CorrectAnswer        string   `json:"correct_answer" validate:"required,max=2000"`
	Points               int      `json:"points" validate:"required,min=1,max=100"`
	SimilarityThreshold  *float64 `json:"similarity_threshold" validate:"omitempty,gte=0,lte=1"`
	FuzzyMatchingEnabled *bool    `json:"fuzzy_matching_enabled"`
}

// AssessmentRequest registers an assessment together with its question set
type AssessmentRequest struct {
	Title     string          `json:"title" validate:"required,min=1,max=200"`
	Subject   string          `json:"subject" validate:"required,max=100"`
	Grade     string          `json:"grade" validate:"omitempty,max=32"`
	TeacherID string          `json:"teacher_id" validate:"required,max=64"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,max=200,dive"`
}

// StudentRequest upserts a roster entry
type StudentRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	Grade     string `json:"grade" validate:"omitempty,max=32"`
	TeacherID string `json:"teacher_id" validate:"required,max=64"`
}

// GroupQuery holds the optional grouping overrides
type GroupQuery struct {
	Subject string `form:"subject" validate:"omitempty,max=100"`
	MinSize *int   `form:"min_size" validate:"omitempty,min=1,max=100"`
	MaxSize *int   `form:"max_size" validate:"omitempty,min=1,max=100"`
}
