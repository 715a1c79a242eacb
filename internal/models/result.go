package models

import "time"

type ResultStatus string

const (
	ResultCompleted  ResultStatus = "completed"
	ResultIncomplete ResultStatus = "incomplete"
	ResultMissed     ResultStatus = "missed"
)

// AssessmentResult is one finished (or missed) attempt. Results are append-only.
type AssessmentResult struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	StudentID    string       `json:"student_id" gorm:"not null;index;size:64"`
	StudentName  string       `json:"student_name" gorm:"size:255"`
	AssessmentID string       `json:"assessment_id" gorm:"not null;index;size:64"`
	Subject      string       `json:"subject" gorm:"index;size:100"`
	Grade        string       `json:"grade" gorm:"size:32"`
	Status       ResultStatus `json:"status" gorm:"default:completed;size:16"`

	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completed_at" gorm:"index"`

	Answers []SubmittedAnswer `json:"answers" gorm:"foreignKey:ResultID"`

	CreatedAt time.Time `json:"created_at"`
}

// IsCompleted reports whether the result carries a usable percentage.
func (r AssessmentResult) IsCompleted() bool {
	return r.Status == "" || r.Status == ResultCompleted
}

// SubmittedAnswer is produced once at submission time and never edited.
type SubmittedAnswer struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	ResultID     uint           `json:"result_id" gorm:"not null;index"`
	QuestionID   string         `json:"question_id" gorm:"not null;index;size:64"`
	QuestionType QuestionType   `json:"question_type" gorm:"size:32"`
	Answer       string         `json:"answer" gorm:"type:text"`
	IsCorrect    bool           `json:"is_correct"`
	Points       int            `json:"points"`
	MaxPoints    int            `json:"max_points"`
	Similarity   *float64       `json:"similarity_score,omitempty"`
	Method       MatchingMethod `json:"matching_method" gorm:"size:16"`
}

// Student is a roster entry owned by a teacher.
type Student struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:255"`
	Grade     string    `json:"grade" gorm:"size:32"`
	TeacherID string    `json:"teacher_id" gorm:"not null;index;size:64"`
	CreatedAt time.Time `json:"created_at"`
}

func (AssessmentResult) TableName() string {
	return "assessment_results"
}

func (SubmittedAnswer) TableName() string {
	return "submitted_answers"
}

func (Student) TableName() string {
	return "students"
}
