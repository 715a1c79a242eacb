package analytics

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidConfig   = errors.New("invalid analytics configuration")
	ErrInvalidRules    = errors.New("invalid rule table")
)

// UnknownQuestionError reports an answer referencing a question that is not
// part of the question bank.
type UnknownQuestionError struct {
	QuestionID string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("unknown question: %s", e.QuestionID)
}

func (e *UnknownQuestionError) Unwrap() error {
	return ErrUnknownQuestion
}
