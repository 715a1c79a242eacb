package services

import (
	"errors"
	"fmt"
)

// Domain errors returned (wrapped) by the services
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
)

// BusinessRuleError reports a request that is well formed but violates a
// domain rule, such as an answer to a question the assessment does not have.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule '%s' violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}
