package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type assessmentService interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error)
	Get(ctx context.Context, ownerID, id string) (*models.Assessment, error)
	Create(ctx context.Context, ownerID string, req models.CreateAssessmentRequest) (*models.Assessment, error)
	Update(ctx context.Context, ownerID, id string, req models.UpdateAssessmentRequest) (*models.Assessment, error)
	Delete(ctx context.Context, ownerID, id string) error
	Publish(ctx context.Context, ownerID, id string) (*models.Assessment, error)
	Unpublish(ctx context.Context, ownerID, id string) (*models.Assessment, error)
}

// AssessmentHandler exposes assessment management and publication endpoints.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler constructs an assessment handler.
func NewAssessmentHandler(svc assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// List godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param classId query string false "Filter by class"
// @Param kind query string false "COMMON or COMPOSITE"
// @Param published query bool false "Only published assessments"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	filter := models.AssessmentFilter{
		OwnerID:       claims.UserID,
		ClassID:       strings.TrimSpace(c.Query("classId")),
		Kind:          models.AssessmentKind(strings.ToUpper(strings.TrimSpace(c.Query("kind")))),
		PublishedOnly: c.Query("published") == "true",
	}
	assessments, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assessments)
}

// Get godoc
// @Summary Get assessment with components
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	assessment, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assessment)
}

// Create godoc
// @Summary Create assessment
// @Description COMPOSITE assessments need at least one subject component with a positive weight.
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Kind = models.AssessmentKind(strings.ToUpper(string(req.Kind)))
	assessment, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// Update godoc
// @Summary Update assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Param payload body models.UpdateAssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) Update(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assessment, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assessment)
}

// Delete godoc
// @Summary Delete assessment
// @Tags Assessments
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 204
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish assessment results
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/{id}/publish [post]
func (h *AssessmentHandler) Publish(c *gin.Context) {
	h.togglePublication(c, true)
}

// Unpublish godoc
// @Summary Hide assessment results from students
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/{id}/publish [delete]
func (h *AssessmentHandler) Unpublish(c *gin.Context) {
	h.togglePublication(c, false)
}

func (h *AssessmentHandler) togglePublication(c *gin.Context, publish bool) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	action := h.service.Unpublish
	if publish {
		action = h.service.Publish
	}
	assessment, err := action(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assessment)
}
