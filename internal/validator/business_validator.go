package validator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/go-playground/validator/v10"
)

// clock skew tolerated on client supplied completion times
const futureTolerance = 5 * time.Minute

func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.MultipleChoice, models.TrueFalse, models.ShortAnswer:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("result_status", func(fl validator.FieldLevel) bool {
		switch models.ResultStatus(fl.Field().String()) {
		case models.ResultCompleted, models.ResultIncomplete, models.ResultMissed:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("not_future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !t.After(time.Now().Add(futureTolerance))
	})
}

// ValidateSubmission runs struct validation and the submission business rules.
func (v *Validator) ValidateSubmission(req *SubmissionRequest) error {
	var errs ValidationErrors
	if err := v.validate.Struct(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}

	status := req.Status
	if status == "" {
		status = models.ResultCompleted
	}

	switch {
	case status == models.ResultMissed && len(req.Answers) > 0:
		errs = append(errs, ValidationError{
			Field:   "answers",
			Message: "must be empty for a missed assessment",
			Rule:    "missed_without_answers",
		})
	case status == models.ResultCompleted && len(req.Answers) == 0:
		errs = append(errs, ValidationError{
			Field:   "answers",
			Message: "is required for a completed assessment",
			Rule:    "completed_with_answers",
		})
	}

	seen := make(map[string]bool, len(req.Answers))
	for i, a := range req.Answers {
		if a.QuestionID == "" {
			continue
		}
		if seen[a.QuestionID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "is answered more than once",
				Value:   a.QuestionID,
				Rule:    "unique_question",
			})
		}
		seen[a.QuestionID] = true
	}

	return errs.OrNil()
}

// ValidateAssessment runs struct validation and the question consistency rules.
func (v *Validator) ValidateAssessment(req *AssessmentRequest) error {
	var errs ValidationErrors
	if err := v.validate.Struct(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}

	seen := make(map[string]bool, len(req.Questions))
	for i, q := range req.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if q.ID != "" && seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "is duplicated",
				Value:   q.ID,
				Rule:    "unique_question",
			})
		}
		seen[q.ID] = true
		errs = append(errs, validateChoiceKey(field, q)...)
	}

	return errs.OrNil()
}

// validateChoiceKey checks that a choice question's answer key is an option index.
func validateChoiceKey(field string, q QuestionInput) ValidationErrors {
	var errs ValidationErrors

	switch models.QuestionType(q.Type) {
	case models.MultipleChoice:
		if len(q.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   field + ".options",
				Message: "must contain at least 2 options",
				Rule:    "choice_options",
			})
			return errs
		}
		idx, err := strconv.Atoi(q.CorrectAnswer)
		if err != nil || idx < 0 || idx >= len(q.Options) {
			errs = append(errs, ValidationError{
				Field:   field + ".correct_answer",
				Message: fmt.Sprintf("must be an option index between 0 and %d", len(q.Options)-1),
				Value:   q.CorrectAnswer,
				Rule:    "choice_index",
			})
		}
	case models.TrueFalse:
		if q.CorrectAnswer != "0" && q.CorrectAnswer != "1" {
			errs = append(errs, ValidationError{
				Field:   field + ".correct_answer",
				Message: "must be 0 (true) or 1 (false)",
				Value:   q.CorrectAnswer,
				Rule:    "choice_index",
			})
		}
	}

	return errs
}
