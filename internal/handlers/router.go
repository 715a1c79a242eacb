package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	studentHandler    *StudentHandler
	dashboardHandler  *DashboardHandler
	serviceManager    services.ServiceManager
	logger            utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), serviceManager.Grading(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		serviceManager:    serviceManager,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		assessments := v1.Group("/assessments")
		{
			assessments.PUT("/:id", hm.assessmentHandler.RegisterAssessment)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.POST("/:id/submissions", hm.assessmentHandler.SubmitResult)
			assessments.GET("/:id/item-analysis", hm.assessmentHandler.GetItemAnalysis)
		}

		students := v1.Group("/students")
		{
			students.PUT("/:id", hm.studentHandler.UpsertStudent)
			students.GET("/:id/risk", hm.studentHandler.GetRisk)
			students.GET("/:id/trend", hm.studentHandler.GetTrend)
			students.GET("/:id/intervention-plan", hm.studentHandler.GetInterventionPlan)
			students.GET("/:id/alerts", hm.studentHandler.ListAlerts)
		}

		teachers := v1.Group("/teachers")
		{
			teachers.GET("/:id/risk-summary", hm.dashboardHandler.GetRiskSummary)
			teachers.GET("/:id/groups", hm.dashboardHandler.GetGroups)
			teachers.POST("/:id/alerts/scan", hm.dashboardHandler.ScanAlerts)
		}
	}
}

// HealthCheck reports whether the database and cache are reachable
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "student-analytics",
	}

	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		utils.FromContext(c, hm.logger).Warn("Health check failed", "error", err)
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["error"] = err.Error()
	}

	c.JSON(status, body)
}
