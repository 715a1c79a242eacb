package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) repositories.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewPostgreSQLRepository(RepositoryConfig{DB: db})
}

func seedAssessment(t *testing.T, repo repositories.Repository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Assessment().Upsert(ctx, nil, &models.Assessment{
			ID: "a1", Title: "Capitals", Subject: "Geography", TeacherID: "t1",
		}); err != nil {
			return err
		}
		return tx.Question().ReplaceForAssessment(ctx, nil, "a1", []models.Question{
			{ID: "q1", Type: models.MultipleChoice, Options: []string{"Paris", "Rome"}, CorrectAnswer: "0", Points: 1, Order: 1},
			{ID: "q2", Type: models.ShortAnswer, CorrectAnswer: "Islamabad", Points: 2, Order: 2},
		})
	}))
}

func result(studentID string, pct float64, at time.Time, status models.ResultStatus) *models.AssessmentResult {
	return &models.AssessmentResult{
		StudentID:    studentID,
		AssessmentID: "a1",
		Subject:      "Geography",
		Status:       status,
		Percentage:   pct,
		CompletedAt:  at,
		Answers: []models.SubmittedAnswer{
			{QuestionID: "q1", QuestionType: models.MultipleChoice, Answer: "0", IsCorrect: true, Points: 1, MaxPoints: 1, Method: models.MatchExact},
		},
	}
}

func TestAssessmentAndQuestions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAssessment(t, repo)

	a, err := repo.Assessment().GetByID(ctx, nil, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Capitals", a.Title)
	assert.Equal(t, 2, a.QuestionsCount)
	assert.Equal(t, 3, a.TotalPoints)
	assert.Equal(t, []string{"Paris", "Rome"}, []string(a.Questions[0].Options))

	// upsert overwrites metadata, replace swaps the question set
	require.NoError(t, repo.Assessment().Upsert(ctx, nil, &models.Assessment{
		ID: "a1", Title: "World capitals", Subject: "Geography", TeacherID: "t1",
	}))
	require.NoError(t, repo.Question().ReplaceForAssessment(ctx, nil, "a1", []models.Question{
		{ID: "q9", Type: models.TrueFalse, CorrectAnswer: "0", Points: 1},
	}))

	a, err = repo.Assessment().GetByID(ctx, nil, "a1")
	require.NoError(t, err)
	assert.Equal(t, "World capitals", a.Title)
	require.Len(t, a.Questions, 1)
	assert.Equal(t, "q9", a.Questions[0].ID)

	list, err := repo.Assessment().ListByTeacher(ctx, nil, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.Assessment().GetByID(ctx, nil, "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestResults(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedAssessment(t, repo)

	// inserted out of order on purpose
	require.NoError(t, repo.Result().Create(ctx, nil, result("s1", 80, baseTime.Add(48*time.Hour), models.ResultCompleted)))
	require.NoError(t, repo.Result().Create(ctx, nil, result("s1", 60, baseTime, models.ResultCompleted)))
	require.NoError(t, repo.Result().Create(ctx, nil, result("s2", 0, baseTime.Add(24*time.Hour), models.ResultMissed)))

	history, err := repo.Result().ListByStudent(ctx, nil, "s1", repositories.ResultFilters{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 60.0, history[0].Percentage)
	assert.Equal(t, 80.0, history[1].Percentage)
	require.Len(t, history[0].Answers, 1)
	assert.Equal(t, "q1", history[0].Answers[0].QuestionID)

	got, err := repo.Result().GetByID(ctx, nil, history[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.StudentID)

	subject := "geography"
	missed := models.ResultMissed
	class, err := repo.Result().ListByStudents(ctx, nil, []string{"s1", "s2"}, repositories.ResultFilters{Subject: &subject, Status: &missed})
	require.NoError(t, err)
	require.Len(t, class, 1)
	assert.Equal(t, "s2", class[0].StudentID)

	byAssessment, err := repo.Result().ListByAssessment(ctx, nil, "a1")
	require.NoError(t, err)
	assert.Len(t, byAssessment, 3)

	count, err := repo.Assessment().CountResults(ctx, nil, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	empty, err := repo.Result().ListByStudents(ctx, nil, nil, repositories.ResultFilters{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.Result().GetByID(ctx, nil, 999)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestTransactionRollback(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Student().Upsert(ctx, nil, &models.Student{ID: "s1", Name: "Ana", TeacherID: "t1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Student().GetByID(ctx, nil, "s1")
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestStudents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Student().Upsert(ctx, nil, &models.Student{ID: "s2", Name: "Ben", TeacherID: "t1"}))
	require.NoError(t, repo.Student().Upsert(ctx, nil, &models.Student{ID: "s1", Name: "Ana", TeacherID: "t1"}))
	require.NoError(t, repo.Student().Upsert(ctx, nil, &models.Student{ID: "s3", Name: "Cy", TeacherID: "t2"}))
	require.NoError(t, repo.Student().Upsert(ctx, nil, &models.Student{ID: "s1", Name: "Ana B.", TeacherID: "t1"}))

	roster, err := repo.Student().ListByTeacher(ctx, nil, "t1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "s1", roster[0].ID)
	assert.Equal(t, "Ana B.", roster[0].Name)
}

func TestAlertsAndFallbackLog(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Alert().CreateBatch(ctx, nil, []models.AlertRecord{
		{AlertID: "x1", StudentID: "s1", Category: string(analytics.AlertMediumRisk), CreatedAt: baseTime},
		{AlertID: "x2", StudentID: "s1", Category: string(analytics.AlertHighRisk), CreatedAt: baseTime.Add(time.Hour)},
		{AlertID: "x3", StudentID: "s1", Category: string(analytics.AlertHighRisk), CreatedAt: baseTime.Add(2 * time.Hour)},
		{AlertID: "x4", StudentID: "s1", Category: string(analytics.AlertMediumRisk), CreatedAt: baseTime.Add(-time.Hour)},
		{AlertID: "x5", StudentID: "s2", Category: string(analytics.AlertHighRisk), CreatedAt: baseTime.Add(3 * time.Hour)},
	}))

	records, total, err := repo.Alert().ListByStudent(ctx, nil, "s1", models.ListParams{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, records, 2)
	assert.Equal(t, "x3", records[0].AlertID)

	last, err := repo.AlertLog().LastAlerts(ctx, []string{"s1"})
	require.NoError(t, err)
	// one entry per student and category, the latest of each
	require.Len(t, last, 2)
	assert.True(t, baseTime.Add(2*time.Hour).Equal(last[analytics.AlertKey{StudentID: "s1", Category: analytics.AlertHighRisk}]))
	assert.True(t, baseTime.Equal(last[analytics.AlertKey{StudentID: "s1", Category: analytics.AlertMediumRisk}]))

	both, err := repo.AlertLog().LastAlerts(ctx, []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Len(t, both, 3)
	assert.True(t, baseTime.Add(3*time.Hour).Equal(both[analytics.AlertKey{StudentID: "s2", Category: analytics.AlertHighRisk}]))
}
