package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

func TestRegisterAssessment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assessment, err := env.services.Assessment().Register(ctx, "a1", geographyQuiz("t1"))
	require.NoError(t, err)
	assert.Equal(t, "Capitals", assessment.Title)
	assert.Equal(t, 3, assessment.QuestionsCount)
	assert.Equal(t, 4, assessment.TotalPoints)
	require.Len(t, assessment.Questions, 3)
	assert.Equal(t, 1, assessment.Questions[0].Order)

	// metadata can change freely before any result exists
	req := geographyQuiz("t1")
	req.Title = "World capitals"
	req.Questions = req.Questions[:2]
	assessment, err = env.services.Assessment().Register(ctx, "a1", req)
	require.NoError(t, err)
	assert.Equal(t, "World capitals", assessment.Title)
	assert.Equal(t, 2, assessment.QuestionsCount)
}

func TestRegisterAssessmentRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	req := geographyQuiz("t1")
	req.Questions = append(req.Questions, validator.QuestionInput{
		ID: "q4", Type: "multiple_choice", Options: []string{"a", "b"}, CorrectAnswer: "5", Points: 1,
	})
	_, err := env.services.Assessment().Register(context.Background(), "a1", req)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestRegisterAssessmentFreezesQuestionsAfterResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.submit(t, "a1", "s1", 1, true)

	// same questions, new title: allowed
	req := geographyQuiz("t1")
	req.Title = "Renamed"
	_, err := env.services.Assessment().Register(ctx, "a1", req)
	require.NoError(t, err)

	req = geographyQuiz("t1")
	req.Questions[2].CorrectAnswer = "Lahore"
	_, err = env.services.Assessment().Register(ctx, "a1", req)
	var ruleErr *BusinessRuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "questions_frozen", ruleErr.Rule)

	assessment, err := env.services.Assessment().GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Islamabad", assessment.Questions[2].CorrectAnswer)
}

func TestItemAnalysisIsCachedUntilNextResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.submit(t, "a1", "s1", 3, true)
	env.submit(t, "a1", "s2", 2, false)

	analysis, err := env.services.Assessment().ItemAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", analysis.AssessmentID)
	assert.Equal(t, 2, analysis.TotalResults)
	require.Len(t, analysis.Questions, 3)
	for _, q := range analysis.Questions {
		assert.Equal(t, 50, q.CorrectPercentage)
	}
	assert.True(t, env.redis.Exists(cache.AnalysisCacheConfig.Prefix+cache.AssessmentKey("a1")))

	env.submit(t, "a1", "s3", 1, true)
	assert.False(t, env.redis.Exists(cache.AnalysisCacheConfig.Prefix+cache.AssessmentKey("a1")))

	analysis, err = env.services.Assessment().ItemAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, analysis.TotalResults)
}

func TestItemAnalysisEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.registerQuiz(t, "a1", "t1")

	analysis, err := env.services.Assessment().ItemAnalysis(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, analysis.TotalResults)
	for _, q := range analysis.Questions {
		assert.Zero(t, q.TotalAttempts)
	}

	_, err = env.services.Assessment().ItemAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}
