package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories/postgres"
	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

type staticEngines struct {
	engine *analytics.Engine
}

func (s staticEngines) Engine() *analytics.Engine {
	return s.engine
}

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
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

	log := discardLogger()
	manager := services.NewServiceManager(services.Dependencies{
		RepoManager: repoManager,
		Engines:     staticEngines{engine: engine},
		Cache:       cache.NewCacheManager(client),
		Publisher:   events.NewMockEventPublisher(nil),
		Validator:   validator.New(),
		Logger:      log.Slog(),
	}, services.DefaultServiceManagerConfig())
	require.NoError(t, manager.Initialize(ctx))
	t.Cleanup(func() { _ = manager.Shutdown(ctx) })

	router := gin.New()
	SetupMiddleware(router, log, nil)
	NewHandlerManager(manager, log).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

var capitalsQuiz = map[string]interface{}{
	"title":      "Capitals",
	"subject":    "Geography",
	"teacher_id": "t1",
	"questions": []map[string]interface{}{
		{"id": "q1", "type": "multiple_choice", "options": []string{"Paris", "Rome"}, "correct_answer": "0", "points": 1},
		{"id": "q2", "type": "short_answer", "correct_answer": "Islamabad", "points": 1},
	},
}

func wrongSubmission(studentID string) map[string]interface{} {
	return map[string]interface{}{
		"student_id": studentID,
		"answers": []map[string]string{
			{"question_id": "q1", "answer": "1"},
			{"question_id": "q2", "answer": "Karachi"},
		},
	}
}

func TestAssessmentRoutes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/assessments/a1", capitalsQuiz)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var assessment models.Assessment
	decode(t, rec, &assessment)
	assert.Equal(t, "a1", assessment.ID)
	assert.Equal(t, 2, assessment.TotalPoints)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assessments/a1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assessments/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/assessments/a1/item-analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis analytics.AssessmentAnalysis
	decode(t, rec, &analysis)
	assert.Len(t, analysis.Questions, 2)
}

func TestSubmissionRoute(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPut, "/api/v1/assessments/a1", capitalsQuiz).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", map[string]interface{}{
		"student_id": "s1",
		"answers": []map[string]string{
			{"question_id": "q1", "answer": "0"},
			{"question_id": "q2", "answer": "islamabad"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var graded services.GradingResult
	decode(t, rec, &graded)
	assert.Equal(t, 100.0, graded.Result.Percentage)
	require.NotNil(t, graded.Risk)
	assert.Equal(t, analytics.RiskLow, graded.Risk.RiskLevel)

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation errors are listed", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", map[string]interface{}{
			"answers": []map[string]string{{"question_id": "q1", "answer": "0"}},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Message string                     `json:"message"`
			Details validator.ValidationErrors `json:"details"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "Validation failed", body.Message)
		assert.NotEmpty(t, body.Details)
	})

	t.Run("unknown question is a business rule", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", map[string]interface{}{
			"student_id": "s2",
			"answers":    []map[string]string{{"question_id": "q9", "answer": "x"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body struct {
			Details struct {
				Rule string `json:"rule"`
			} `json:"details"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "known_question", body.Details.Rule)
	})

	t.Run("unknown assessment", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/assessments/nope/submissions", wrongSubmission("s1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStudentRoutes(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPut, "/api/v1/assessments/a1", capitalsQuiz).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", wrongSubmission("s1")).Code)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/students/s1", map[string]string{"name": "Ana", "teacher_id": "t1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/s1/risk", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var risk analytics.RiskAssessment
	decode(t, rec, &risk)
	assert.Equal(t, "Ana", risk.StudentName)
	assert.Equal(t, analytics.RiskHigh, risk.RiskLevel)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/s1/trend?subject=geography", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trend services.StudentTrendResponse
	decode(t, rec, &trend)
	assert.Equal(t, 1, trend.Overall.DataPoints)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/s1/intervention-plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plan analytics.InterventionPlan
	decode(t, rec, &plan)
	assert.NotEmpty(t, plan.Interventions)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/s1/alerts?page=1&size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedResponse
	decode(t, rec, &page)
	assert.Equal(t, int64(1), page.TotalElements)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/s1/alerts?size=1000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/students/ghost/risk", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/students/s2", map[string]string{"name": "No teacher"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeacherRoutes(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPut, "/api/v1/assessments/a1", capitalsQuiz).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/v1/assessments/a1/submissions", wrongSubmission("s1")).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/teachers/t1/risk-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report services.ClassRiskReport
	decode(t, rec, &report)
	assert.Equal(t, 1, report.Summary.TotalStudents)
	assert.Equal(t, 1, report.Summary.HighRisk)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/teachers/t1/groups?subject=Geography", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups services.GroupsResponse
	decode(t, rec, &groups)
	assert.Equal(t, "Geography", groups.Subject)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/teachers/t1/groups?min_size=5&max_size=2", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/teachers/t1/groups?max_size=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the submission already alerted, so the scan is inside the cooldown
	rec = doJSON(t, router, http.MethodPost, "/api/v1/teachers/t1/alerts/scan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var scan struct {
		Message string            `json:"message"`
		Data    []analytics.Alert `json:"data"`
	}
	decode(t, rec, &scan)
	assert.Equal(t, "Alert scan completed", scan.Message)
	assert.Empty(t, scan.Data)
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

type failingDashboard struct {
	err error
}

func (f failingDashboard) RiskSummary(context.Context, string) (*services.ClassRiskReport, error) {
	return nil, f.err
}

func (f failingDashboard) Groups(context.Context, string, *services.GroupQuery) (*services.GroupsResponse, error) {
	return nil, f.err
}

func (f failingDashboard) ScanAlerts(context.Context, string) ([]analytics.Alert, error) {
	return nil, f.err
}

func TestServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
		{"conflict", services.ErrConflict, http.StatusConflict},
		{"bad request", services.ErrBadRequest, http.StatusBadRequest},
		{"wrapped not found", errors.Join(errors.New("lookup"), services.ErrStudentNotFound), http.StatusNotFound},
		{"business rule", services.NewBusinessRuleError("r", "nope", nil), http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewDashboardHandler(failingDashboard{err: tc.err}, discardLogger())
			router := gin.New()
			router.GET("/teachers/:id/risk-summary", h.GetRiskSummary)

			rec := doJSON(t, router, http.MethodGet, "/teachers/t1/risk-summary", nil)
			assert.Equal(t, tc.code, rec.Code)
			var body ErrorResponse
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Message)
			if tc.code == http.StatusInternalServerError {
				// internal details never leak
				assert.Nil(t, body.Details)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
