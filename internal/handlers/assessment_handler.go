package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/student-analytics/internal/services"
	"github.com/SAP-F-2025/student-analytics/internal/utils"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	gradingService    services.GradingService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	gradingService services.GradingService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		gradingService:    gradingService,
	}
}

// RegisterAssessment creates or replaces an assessment and its questions
// @Summary Register assessment
// @Description Creates or updates an assessment. Questions are frozen once results exist.
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param assessment body services.AssessmentRequest true "Assessment data"
// @Success 200 {object} models.Assessment
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) RegisterAssessment(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.AssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Registering assessment", "assessment_id", id, "questions", len(req.Questions))

	assessment, err := h.assessmentService.Register(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetAssessment retrieves an assessment with its questions
// @Summary Get assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.Assessment
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting assessment", "assessment_id", id)

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// SubmitResult grades a submission and stores the result
// @Summary Submit result
// @Description Scores the answers, stores the result and refreshes the student's risk
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param submission body services.SubmissionRequest true "Submission"
// @Success 201 {object} services.GradingResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{id}/submissions [post]
func (h *AssessmentHandler) SubmitResult(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.SubmissionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Grading submission", "assessment_id", id, "student_id", req.StudentID)

	graded, err := h.gradingService.GradeSubmission(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, graded)
}

// GetItemAnalysis returns per-question difficulty and discrimination
// @Summary Get item analysis
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} analytics.AssessmentAnalysis
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assessments/{id}/item-analysis [get]
func (h *AssessmentHandler) GetItemAnalysis(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Getting item analysis", "assessment_id", id)

	analysis, err := h.assessmentService.ItemAnalysis(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}
