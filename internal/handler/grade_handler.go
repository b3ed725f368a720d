package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type gradeService interface {
	List(ctx context.Context, ownerID, assessmentID string) ([]models.GradeRecord, error)
	SaveCommon(ctx context.Context, ownerID string, req models.SaveCommonGradesRequest) (*models.GradeSaveResult, error)
	SaveComposite(ctx context.Context, ownerID string, req models.SaveCompositeGradesRequest) (*models.GradeSaveResult, error)
}

// GradeHandler exposes grade entry endpoints.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc gradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// ListByAssessment godoc
// @Summary List grades of an assessment
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/grades [get]
func (h *GradeHandler) ListByAssessment(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	grades, err := h.service.List(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grades)
}

// SaveCommon godoc
// @Summary Save direct scores
// @Description Upserts one score per student for a COMMON assessment.
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SaveCommonGradesRequest true "Grades payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) SaveCommon(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.SaveCommonGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.SaveCommon(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// SaveComposite godoc
// @Summary Save per-subject scores
// @Description Upserts component scores of a COMPOSITE assessment.
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SaveCompositeGradesRequest true "Composite grades payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/composite [post]
func (h *GradeHandler) SaveComposite(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	var req models.SaveCompositeGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.SaveComposite(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
