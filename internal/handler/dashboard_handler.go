package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/export"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type dashboardService interface {
	Teacher(ctx context.Context, ownerID, classID, assessmentID string) (*dto.TeacherDashboardResponse, bool, error)
	Student(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error)
	StudentGrades(ctx context.Context, studentID string) (*dto.StudentGradesResponse, error)
}

type exportService interface {
	Export(ctx context.Context, ownerID, classID, assessmentID string, format export.Format) (*service.ExportResult, error)
}

// DashboardHandler wires dashboard and export services to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	exports exportService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, exports exportService) *DashboardHandler {
	return &DashboardHandler{service: service, exports: exports}
}

func assessmentQuery(c *gin.Context) (classID, assessmentID string, ok bool) {
	classID = strings.TrimSpace(c.Query("classId"))
	assessmentID = strings.TrimSpace(c.Query("assessmentId"))
	if classID == "" || assessmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId and assessmentId are required"))
		return "", "", false
	}
	return classID, assessmentID, true
}

// Teacher godoc
// @Summary Assessment dashboard
// @Description Per-student scores, class average, top scorer, trend against the previous assessment and subject breakdown.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param classId query string true "Class ID"
// @Param assessmentId query string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	classID, assessmentID, ok := assessmentQuery(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Teacher(c.Request.Context(), claims.UserID, classID, assessmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.Meta(c))
}

// Export godoc
// @Summary Export assessment score sheet
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param classId query string true "Class ID"
// @Param assessmentId query string true "Assessment ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	classID, assessmentID, ok := assessmentQuery(c)
	if !ok {
		return
	}
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	result, err := h.exports.Export(c.Request.Context(), claims.UserID, classID, assessmentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}

// MyDashboard godoc
// @Summary Student dashboard
// @Description Statistics, evolution, class comparison and subject performance over published assessments.
// @Tags Student Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /me/dashboard [get]
func (h *DashboardHandler) MyDashboard(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Student(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.Meta(c))
}

// MyGrades godoc
// @Summary Student grade listing
// @Description Published assessments, most recent first, with the student's scores.
// @Tags Student Portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/grades [get]
func (h *DashboardHandler) MyGrades(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	listing, err := h.service.StudentGrades(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listing)
}
