package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/events"
)

// seedClass gives teacher t1 one struggling, one strong and one silent
// student, and teacher t2 a student of their own.
func seedClass(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	env.registerQuiz(t, "a1", "t1")
	env.registerQuiz(t, "b1", "t2")

	env.submit(t, "a1", "weak", 3, false)
	env.submit(t, "a1", "strong", 3, true)
	env.submit(t, "b1", "other", 3, true)

	_, err := env.services.Student().Upsert(ctx, "silent", &StudentRequest{Name: "Silent", TeacherID: "t1"})
	require.NoError(t, err)
}

func TestRiskSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedClass(t, env)

	report, err := env.services.Dashboard().RiskSummary(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", report.TeacherID)
	assert.Equal(t, 3, report.Summary.TotalStudents)
	assert.Equal(t, 1, report.Summary.HighRisk)
	assert.Equal(t, 2, report.Summary.LowRisk)

	// roster order is preserved through the worker pool
	require.Len(t, report.Students, 3)
	ids := []string{report.Students[0].StudentID, report.Students[1].StudentID, report.Students[2].StudentID}
	assert.Equal(t, []string{"silent", "strong", "weak"}, ids)
	assert.Equal(t, analytics.RiskHigh, report.Students[2].RiskLevel)

	require.NotEmpty(t, report.Summary.StudentsAtRisk)
	assert.Equal(t, "weak", report.Summary.StudentsAtRisk[0].StudentID)
	assert.True(t, env.redis.Exists(cache.SummaryCacheConfig.Prefix+cache.TeacherKey("t1")))

	// a new result drops every class summary
	env.submit(t, "a1", "strong", 1, true)
	assert.False(t, env.redis.Exists(cache.SummaryCacheConfig.Prefix+cache.TeacherKey("t1")))
}

func TestRiskSummaryEmptyRoster(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.services.Dashboard().RiskSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, report.Summary.TotalStudents)
	assert.Empty(t, report.Students)
}

func TestGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedClass(t, env)

	resp, err := env.services.Dashboard().Groups(ctx, "t1", &GroupQuery{})
	require.NoError(t, err)

	// the silent student has no completed result and is left out
	members := map[string]analytics.CompetencyLevel{}
	for _, g := range resp.Groups {
		for _, m := range g.Students {
			members[m.StudentID] = g.Level
		}
	}
	assert.Equal(t, map[string]analytics.CompetencyLevel{
		"weak":   analytics.LevelBeginner,
		"strong": analytics.LevelAdvanced,
	}, members)

	resp, err = env.services.Dashboard().Groups(ctx, "t1", &GroupQuery{Subject: "History"})
	require.NoError(t, err)
	assert.Empty(t, resp.Groups)
}

func TestGroupsRejectsBadSizes(t *testing.T) {
	env := newTestEnv(t)
	lo, hi := 5, 2

	_, err := env.services.Dashboard().Groups(context.Background(), "t1", &GroupQuery{MinSize: &lo, MaxSize: &hi})
	var ruleErr *BusinessRuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "group_size_range", ruleErr.Rule)

	zero := 0
	_, err = env.services.Dashboard().Groups(context.Background(), "t1", &GroupQuery{MaxSize: &zero})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestScanAlertsHonoursCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedClass(t, env)
	env.publisher.ClearEvents()

	// grading already alerted on the weak student
	alerts, err := env.services.Dashboard().ScanAlerts(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, env.eventsOfType(events.EventStudentRiskAlert))

	// once the cooldown entry expires the scan raises it again
	env.redis.FlushAll()
	alerts, err = env.services.Dashboard().ScanAlerts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "weak", alerts[0].StudentID)
	assert.Len(t, env.eventsOfType(events.EventStudentRiskAlert), 1)
}
