package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type MatchingMethod string

const (
	MatchExact MatchingMethod = "exact"
	MatchFuzzy MatchingMethod = "fuzzy"
	MatchNone  MatchingMethod = "none"
)

// Question is the published definition of one assessment item. It is never
// mutated after publication.
type Question struct {
	ID           string       `json:"id" gorm:"primaryKey;size:64"`
	AssessmentID string       `json:"assessment_id" gorm:"primaryKey;size:64"`
	Type         QuestionType `json:"type" gorm:"not null;size:32"`
	Text         string       `json:"text" gorm:"type:text"`
	Order        int          `json:"order" gorm:"default:0"`

	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer string                      `json:"correct_answer" gorm:"not null"` // option index for choice types
	Points        int                         `json:"points" gorm:"default:1"`

	// Fuzzy matching overrides (short answer only)
	SimilarityThreshold  *float64 `json:"similarity_threshold,omitempty"`
	FuzzyMatchingEnabled *bool    `json:"fuzzy_matching_enabled,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// QuestionBank indexes questions by ID for lookups during scoring.
type QuestionBank map[string]Question

func NewQuestionBank(questions []Question) QuestionBank {
	bank := make(QuestionBank, len(questions))
	for _, q := range questions {
		bank[q.ID] = q
	}
	return bank
}

func (Question) TableName() string {
	return "questions"
}
