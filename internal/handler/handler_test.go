package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/export"
)

func TestLoginIsPublic(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "prof.ana", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prof.ana", f.auth.loginReq.Username)

	var data models.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "signed", data.AccessToken)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code)
}

func TestLoginPropagatesInvalidCredentials(t *testing.T) {
	f := newRouterFixture()
	f.auth.loginErr = appErrors.Clone(appErrors.ErrInvalidCredentials, "")

	rec := f.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "prof.ana", "password": "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Status, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decode(t, rec).Error.Code)
}

func TestChangePasswordUsesTokenUser(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/auth/change-password", studentToken, map[string]string{"new_password": "nova-senha"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-ana", f.auth.changedBy)

	rec = f.do(http.MethodPost, "/auth/change-password", "", map[string]string{"new_password": "nova-senha"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTeacherRoutesRejectStudents(t *testing.T) {
	f := newRouterFixture()

	for _, path := range []string{"/classes", "/students", "/subjects", "/assessments", "/dashboard?classId=c1&assessmentId=a1"} {
		rec := f.do(http.MethodGet, path, studentToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	rec := f.do(http.MethodGet, "/classes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentRoutesRejectTeachers(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/me/dashboard", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClassRoutes(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/classes?academicYear=2024&search=%203%C2%BA%20", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ClassFilter{OwnerID: teacherUserID, AcademicYear: 2024, Search: "3º"}, f.classes.filter)

	rec = f.do(http.MethodGet, "/classes?academicYear=next", teacherToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/classes", teacherToken, models.CreateClassRequest{Name: "3º A", AcademicYear: 2024})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, teacherUserID, f.classes.owner)
	assert.Equal(t, "3º A", f.classes.created.Name)

	f.classes.err = appErrors.Clone(appErrors.ErrNotFound, "class not found")
	rec = f.do(http.MethodDelete, "/classes/c9", teacherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.classes.err = nil
	rec = f.do(http.MethodDelete, "/classes/c1", teacherToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStudentListFilters(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/students?classId=c1", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StudentFilter{OwnerID: teacherUserID, ClassID: "c1"}, f.students.filter)
}

func TestSubjectDeleteConflict(t *testing.T) {
	f := newRouterFixture()
	f.subjects.deleteErr = appErrors.Clone(appErrors.ErrConflict, "subject is used by an assessment")

	rec := f.do(http.MethodDelete, "/subjects/math", teacherToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "subject is used by an assessment", decode(t, rec).Error.Message)
}

func TestAssessmentRoutes(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/assessments?classId=c1&kind=composite&published=true", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AssessmentFilter{OwnerID: teacherUserID, ClassID: "c1", Kind: models.AssessmentComposite, PublishedOnly: true}, f.assessments.filter)

	rec = f.do(http.MethodPost, "/assessments", teacherToken, map[string]interface{}{
		"class_id":      "c1",
		"name":          "Simulado 1",
		"kind":          "composite",
		"academic_year": 2024,
		"components":    []map[string]interface{}{{"subject_id": "math", "weight": 6}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.AssessmentComposite, f.assessments.created.Kind)
	require.Len(t, f.assessments.created.Components, 1)

	rec = f.do(http.MethodPost, "/assessments/a1/publish", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.assessments.published["a1"])

	rec = f.do(http.MethodDelete, "/assessments/a1/publish", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.assessments.published["a1"])

	rec = f.do(http.MethodGet, "/assessments/a1/grades", teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGradeRoutes(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/grades", teacherToken, map[string]interface{}{
		"assessment_id": "a1",
		"grades":        []map[string]interface{}{{"student_id": "s-a", "score": 7.5}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.grades.common.Grades, 1)
	assert.Equal(t, 7.5, *f.grades.common.Grades[0].Score)

	rec = f.do(http.MethodPost, "/grades/composite", teacherToken, map[string]interface{}{
		"assessment_id": "a2",
		"students": []map[string]interface{}{{
			"student_id": "s-a",
			"scores":     []map[string]interface{}{{"component_id": "comp-math", "score": 8}},
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "comp-math", f.grades.composite.Students[0].Scores[0].ComponentID)
}

func TestTeacherDashboard(t *testing.T) {
	f := newRouterFixture()
	f.dashboards.teacherHit = true

	rec := f.do(http.MethodGet, "/dashboard?classId=c1&assessmentId=a1", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{teacherUserID, "c1", "a1"}, f.dashboards.teacherArgs)

	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, 8.4, data["classAverage"])
	assert.Nil(t, data["trendPercent"])
}

func TestTeacherDashboardRequiresIDs(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/dashboard?classId=c1", teacherToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.dashboards.teacherArgs)
}

func TestTeacherDashboardInternalError(t *testing.T) {
	f := newRouterFixture()
	f.dashboards.teacherErr = errors.New("boom")

	rec := f.do(http.MethodGet, "/dashboard?classId=c1&assessmentId=a1", teacherToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardExport(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/dashboard/export?classId=c1&assessmentId=a1", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, f.dashboards.exportFormat)
	assert.Equal(t, `attachment; filename="Simulado_2.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "#,Student,Score\n", rec.Body.String())

	f.do(http.MethodGet, "/dashboard/export?classId=c1&assessmentId=a1&format=pdf", teacherToken, nil)
	assert.Equal(t, export.FormatPDF, f.dashboards.exportFormat)
}

func TestStudentPortal(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/me/dashboard", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s-a", f.dashboards.studentID)
	assert.Equal(t, true, decode(t, rec).Meta["cache_hit"])

	f.dashboards.studentID = ""
	rec = f.do(http.MethodGet, "/me/grades", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s-a", f.dashboards.studentID)
}

func TestObservabilityRoutes(t *testing.T) {
	f := newRouterFixture()

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := f.do(http.MethodGet, "/metrics/summary", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.SystemMetrics
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &snapshot))
	assert.Positive(t, snapshot.Goroutines)
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), failingPinger{})
	f := newRouterFixture()
	f.router.GET("/ready-db", h.Ready)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready-db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
