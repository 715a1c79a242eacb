package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/models"
)

func TestStudentUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	student, err := env.services.Student().Upsert(ctx, "s1", &StudentRequest{Name: "Ana", TeacherID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)

	_, err = env.services.Student().Upsert(ctx, "s1", &StudentRequest{Name: "Ana"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestStudentRiskUsesRosterName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.submit(t, "a1", "s1", 1, true)

	_, err := env.services.Student().Upsert(ctx, "s1", &StudentRequest{Name: "Ana Lima", TeacherID: "t1"})
	require.NoError(t, err)
	assert.False(t, env.redis.Exists(cache.RiskCacheConfig.Prefix+cache.StudentKey("s1")))

	risk, err := env.services.Student().Risk(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", risk.StudentID)
	assert.Equal(t, "Ana Lima", risk.StudentName)
	assert.Equal(t, analytics.RiskLow, risk.RiskLevel)
	assert.True(t, env.redis.Exists(cache.RiskCacheConfig.Prefix+cache.StudentKey("s1")))
}

func TestStudentNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.services.Student().Risk(ctx, "ghost")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	_, err = env.services.Student().Trend(ctx, "ghost", "")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	_, err = env.services.Student().InterventionPlan(ctx, "ghost")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStudentRosterOnlyHasLowRisk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.services.Student().Upsert(ctx, "s1", &StudentRequest{Name: "Ana", TeacherID: "t1"})
	require.NoError(t, err)

	risk, err := env.services.Student().Risk(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, analytics.RiskLow, risk.RiskLevel)
	assert.Zero(t, risk.OverallRiskScore)
}

func TestStudentTrend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.submit(t, "a1", "s1", 20, false)
	env.submit(t, "a1", "s1", 10, false)
	env.submit(t, "a1", "s1", 5, true)
	env.submit(t, "a1", "s1", 1, true)

	trend, err := env.services.Student().Trend(ctx, "s1", "")
	require.NoError(t, err)
	assert.Equal(t, analytics.TrendImproving, trend.Overall.Trend)
	assert.Equal(t, 4, trend.Overall.DataPoints)
	require.Len(t, trend.Subjects, 1)
	assert.Equal(t, "Geography", trend.Subjects[0].Subject)

	scoped, err := env.services.Student().Trend(ctx, "s1", "geography")
	require.NoError(t, err)
	assert.Equal(t, 4, scoped.Overall.DataPoints)

	other, err := env.services.Student().Trend(ctx, "s1", "History")
	require.NoError(t, err)
	assert.Equal(t, analytics.TrendStable, other.Overall.Trend)
	assert.Zero(t, other.Overall.DataPoints)
	assert.Empty(t, other.Subjects)
}

func TestStudentInterventionPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.submit(t, "a1", "s1", 3, false)
	env.submit(t, "a1", "s1", 1, false)

	plan, err := env.services.Student().InterventionPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", plan.StudentID)
	assert.NotEmpty(t, plan.Interventions)
}

func TestStudentAlertsPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.repo.Alert().CreateBatch(ctx, nil, []models.AlertRecord{
		{AlertID: "x1", StudentID: "s1", Category: string(analytics.AlertMediumRisk)},
		{AlertID: "x2", StudentID: "s1", Category: string(analytics.AlertHighRisk)},
		{AlertID: "x3", StudentID: "s1", Category: string(analytics.AlertHighRisk)},
	}))

	page, err := env.services.Student().Alerts(ctx, "s1", models.ListParams{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.NumberOfElements)
	assert.True(t, page.Last)

	_, err = env.services.Student().Alerts(ctx, "s1", models.ListParams{Size: 500})
	assert.ErrorIs(t, err, ErrValidationFailed)
}
