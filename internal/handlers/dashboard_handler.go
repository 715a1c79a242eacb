package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetRiskSummary returns the class risk summary for a teacher's roster
// @Summary Get class risk summary
// @Description Risk assessment of every student on the roster plus class-level counts
// @Tags dashboard
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} services.ClassRiskReport
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /teachers/{id}/risk-summary [get]
func (h *DashboardHandler) GetRiskSummary(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting class risk summary", "teacher_id", id)

	report, err := h.service.RiskSummary(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetGroups returns competency groups for a teacher's roster
// @Summary Get competency groups
// @Tags dashboard
// @Produce json
// @Param id path string true "Teacher ID"
// @Param subject query string false "Restrict to one subject"
// @Param min_size query int false "Minimum group size"
// @Param max_size query int false "Maximum group size"
// @Success 200 {object} services.GroupsResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 422 {object} ErrorResponse "Inconsistent group sizes"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /teachers/{id}/groups [get]
func (h *DashboardHandler) GetGroups(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var query services.GroupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Getting competency groups", "teacher_id", id, "subject", query.Subject)

	groups, err := h.service.Groups(c.Request.Context(), id, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// ScanAlerts re-evaluates the roster and raises any alert outside its cooldown
// @Summary Scan class alerts
// @Tags dashboard
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} SuccessResponse{data=[]analytics.Alert}
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /teachers/{id}/alerts/scan [post]
func (h *DashboardHandler) ScanAlerts(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Scanning class alerts", "teacher_id", id)

	alerts, err := h.service.ScanAlerts(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "Alert scan completed",
		Data:      alerts,
		Timestamp: time.Now().UTC(),
	})
}
