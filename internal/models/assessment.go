package models

import "time"

// Assessment groups a published question set under a subject. Dashboards
// look assessments up by teacher to build class level views.
type Assessment struct {
	ID        string `json:"id" gorm:"primaryKey;size:64"`
	Title     string `json:"title" gorm:"not null;size:200"`
	Subject   string `json:"subject" gorm:"not null;size:100;index"`
	Grade     string `json:"grade" gorm:"size:32"`
	TeacherID string `json:"teacher_id" gorm:"not null;size:64;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}
