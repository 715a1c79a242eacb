package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/repositories/postgres"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

type staticEngines struct {
	engine *analytics.Engine
}

func (s staticEngines) Engine() *analytics.Engine {
	return s.engine
}

type testEnv struct {
	services  ServiceManager
	repo      repositories.Repository
	cache     *cache.CacheManager
	redis     *miniredis.Miniredis
	publisher *events.MockEventPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, postgres.AutoMigrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{DB: db, RedisClient: client})
	require.NoError(t, repoManager.Initialize())

	engine, err := analytics.New(analytics.DefaultConfig(), nil)
	require.NoError(t, err)

	cacheManager := cache.NewCacheManager(client)
	publisher := events.NewMockEventPublisher(nil)

	manager := NewServiceManager(Dependencies{
		RepoManager: repoManager,
		Engines:     staticEngines{engine: engine},
		Cache:       cacheManager,
		Publisher:   publisher,
		Validator:   validator.New(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, ServiceManagerConfig{Workers: 2, AlertTopic: events.TopicAlerts})
	require.NoError(t, manager.Initialize(ctx))
	t.Cleanup(func() { _ = manager.Shutdown(ctx) })

	return &testEnv{
		services:  manager,
		repo:      repoManager.GetRepository(),
		cache:     cacheManager,
		redis:     mr,
		publisher: publisher,
	}
}

func geographyQuiz(teacherID string) *AssessmentRequest {
	return &AssessmentRequest{
		Title:     "Capitals",
		Subject:   "Geography",
		TeacherID: teacherID,
		Questions: []validator.QuestionInput{
			{ID: "q1", Type: "multiple_choice", Options: []string{"Paris", "Rome", "Berlin"}, CorrectAnswer: "0", Points: 1},
			{ID: "q2", Type: "true_false", Options: []string{"False", "True"}, CorrectAnswer: "1", Points: 1},
			{ID: "q3", Type: "short_answer", CorrectAnswer: "Islamabad", Points: 2},
		},
	}
}

func (e *testEnv) registerQuiz(t *testing.T, assessmentID, teacherID string) {
	t.Helper()
	_, err := e.services.Assessment().Register(context.Background(), assessmentID, geographyQuiz(teacherID))
	require.NoError(t, err)
}

// submit grades a submission completed daysAgo days before now. allCorrect
// answers every question right, otherwise every answer is wrong.
func (e *testEnv) submit(t *testing.T, assessmentID, studentID string, daysAgo int, allCorrect bool) *GradingResult {
	t.Helper()
	answers := []validator.AnswerInput{
		{QuestionID: "q1", Answer: "2"},
		{QuestionID: "q2", Answer: "0"},
		{QuestionID: "q3", Answer: "Karachi"},
	}
	if allCorrect {
		answers = []validator.AnswerInput{
			{QuestionID: "q1", Answer: "0"},
			{QuestionID: "q2", Answer: "1"},
			{QuestionID: "q3", Answer: "islamabad"},
		}
	}

	at := time.Now().AddDate(0, 0, -daysAgo)
	graded, err := e.services.Grading().GradeSubmission(context.Background(), assessmentID, &SubmissionRequest{
		StudentID:   studentID,
		StudentName: "Student " + studentID,
		CompletedAt: &at,
		Answers:     answers,
	})
	require.NoError(t, err)
	return graded
}

func (e *testEnv) eventsOfType(eventType string) []events.Event {
	var out []events.Event
	for _, ev := range e.publisher.GetPublishedEvents() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
