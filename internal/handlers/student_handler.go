package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	service services.StudentService
}

func NewStudentHandler(service services.StudentService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== STUDENT ENDPOINTS =====

// UpsertStudent creates or updates a roster entry
// @Summary Upsert student
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param student body services.StudentRequest true "Student data"
// @Success 200 {object} models.Student
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /students/{id} [put]
func (h *StudentHandler) UpsertStudent(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.StudentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Upserting student", "student_id", id)

	student, err := h.service.Upsert(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// GetRisk returns the student's current risk assessment
// @Summary Get student risk
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} analytics.RiskAssessment
// @Failure 404 {object} ErrorResponse "Student not found"
// @Failure 500 {object} ErrorResponse
// @Router /students/{id}/risk [get]
func (h *StudentHandler) GetRisk(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting student risk", "student_id", id)

	risk, err := h.service.Risk(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, risk)
}

// GetTrend returns the performance trend, optionally scoped to one subject
// @Summary Get student trend
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Param subject query string false "Subject filter (case insensitive)"
// @Success 200 {object} services.StudentTrendResponse
// @Failure 404 {object} ErrorResponse "Student not found"
// @Failure 500 {object} ErrorResponse
// @Router /students/{id}/trend [get]
func (h *StudentHandler) GetTrend(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	subject := c.Query("subject")
	h.LogRequest(c, "Getting student trend", "student_id", id, "subject", subject)

	trend, err := h.service.Trend(c.Request.Context(), id, subject)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trend)
}

// GetInterventionPlan returns the prioritised intervention plan
// @Summary Get intervention plan
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} analytics.InterventionPlan
// @Failure 404 {object} ErrorResponse "Student not found"
// @Failure 500 {object} ErrorResponse
// @Router /students/{id}/intervention-plan [get]
func (h *StudentHandler) GetInterventionPlan(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting intervention plan", "student_id", id)

	plan, err := h.service.InterventionPlan(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ListAlerts returns the student's alert history, newest first
// @Summary List student alerts
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /students/{id}/alerts [get]
func (h *StudentHandler) ListAlerts(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	params := models.ListParams{
		Page: h.parseIntQuery(c, "page", 1),
		Size: h.parseIntQuery(c, "size", 20),
	}

	h.LogRequest(c, "Listing student alerts", "student_id", id, "page", params.Page, "size", params.Size)

	page, err := h.service.Alerts(c.Request.Context(), id, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
