package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/export"
)

const (
	teacherToken  = "teacher-token"
	studentToken  = "student-token"
	teacherUserID = "t1"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type fakeAuthSvc struct {
	loginReq  models.LoginRequest
	loginErr  error
	changedBy string
}

func (f *fakeAuthSvc) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "signed", User: models.UserInfo{ID: teacherUserID, Role: models.RoleTeacher}}, nil
}

func (f *fakeAuthSvc) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	f.changedBy = userID
	return nil
}

type fakeClassSvc struct {
	filter  models.ClassFilter
	created models.CreateClassRequest
	owner   string
	err     error
}

func (f *fakeClassSvc) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	f.filter = filter
	return []models.Class{{ID: "c1", Name: "3º A", OwnerID: filter.OwnerID}}, f.err
}

func (f *fakeClassSvc) Get(ctx context.Context, ownerID, id string) (*models.Class, error) {
	f.owner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Class{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeClassSvc) Create(ctx context.Context, ownerID string, req models.CreateClassRequest) (*models.Class, error) {
	f.owner = ownerID
	f.created = req
	return &models.Class{ID: "c-new", Name: req.Name, AcademicYear: req.AcademicYear, OwnerID: ownerID}, nil
}

func (f *fakeClassSvc) Update(ctx context.Context, ownerID, id string, req models.UpdateClassRequest) (*models.Class, error) {
	return &models.Class{ID: id, Name: req.Name}, nil
}

func (f *fakeClassSvc) Delete(ctx context.Context, ownerID, id string) error {
	f.owner = ownerID
	return f.err
}

type fakeStudentSvc struct {
	filter models.StudentFilter
}

func (f *fakeStudentSvc) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.filter = filter
	return []models.Student{}, nil
}

func (f *fakeStudentSvc) Get(ctx context.Context, ownerID, id string) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentSvc) Create(ctx context.Context, ownerID string, req models.CreateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: "s-new", ClassID: req.ClassID, Name: req.Name}, nil
}

func (f *fakeStudentSvc) Update(ctx context.Context, ownerID, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id, Name: req.Name}, nil
}

func (f *fakeStudentSvc) Delete(ctx context.Context, ownerID, id string) error {
	return nil
}

type fakeSubjectSvc struct {
	deleteErr error
}

func (f *fakeSubjectSvc) List(ctx context.Context, ownerID string) ([]models.Subject, error) {
	return []models.Subject{{ID: "math", Name: "Matemática", OwnerID: ownerID}}, nil
}

func (f *fakeSubjectSvc) Get(ctx context.Context, ownerID, id string) (*models.Subject, error) {
	return &models.Subject{ID: id}, nil
}

func (f *fakeSubjectSvc) Create(ctx context.Context, ownerID string, req models.SubjectRequest) (*models.Subject, error) {
	return &models.Subject{ID: "subj-new", Name: req.Name}, nil
}

func (f *fakeSubjectSvc) Update(ctx context.Context, ownerID, id string, req models.SubjectRequest) (*models.Subject, error) {
	return &models.Subject{ID: id, Name: req.Name}, nil
}

func (f *fakeSubjectSvc) Delete(ctx context.Context, ownerID, id string) error {
	return f.deleteErr
}

type fakeAssessmentSvc struct {
	filter    models.AssessmentFilter
	created   models.CreateAssessmentRequest
	published map[string]bool
}

func (f *fakeAssessmentSvc) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	f.filter = filter
	return []models.Assessment{}, nil
}

func (f *fakeAssessmentSvc) Get(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	return &models.Assessment{ID: id}, nil
}

func (f *fakeAssessmentSvc) Create(ctx context.Context, ownerID string, req models.CreateAssessmentRequest) (*models.Assessment, error) {
	f.created = req
	return &models.Assessment{ID: "a-new", Kind: req.Kind, Name: req.Name}, nil
}

func (f *fakeAssessmentSvc) Update(ctx context.Context, ownerID, id string, req models.UpdateAssessmentRequest) (*models.Assessment, error) {
	return &models.Assessment{ID: id, Name: req.Name}, nil
}

func (f *fakeAssessmentSvc) Delete(ctx context.Context, ownerID, id string) error {
	return nil
}

func (f *fakeAssessmentSvc) Publish(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	f.mark(id, true)
	return &models.Assessment{ID: id, Published: true}, nil
}

func (f *fakeAssessmentSvc) Unpublish(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	f.mark(id, false)
	return &models.Assessment{ID: id}, nil
}

func (f *fakeAssessmentSvc) mark(id string, published bool) {
	if f.published == nil {
		f.published = make(map[string]bool)
	}
	f.published[id] = published
}

type fakeGradeSvc struct {
	common    models.SaveCommonGradesRequest
	composite models.SaveCompositeGradesRequest
}

func (f *fakeGradeSvc) List(ctx context.Context, ownerID, assessmentID string) ([]models.GradeRecord, error) {
	return []models.GradeRecord{{ID: "g1", AssessmentID: assessmentID, Score: 7}}, nil
}

func (f *fakeGradeSvc) SaveCommon(ctx context.Context, ownerID string, req models.SaveCommonGradesRequest) (*models.GradeSaveResult, error) {
	f.common = req
	return &models.GradeSaveResult{AssessmentID: req.AssessmentID, Saved: len(req.Grades)}, nil
}

func (f *fakeGradeSvc) SaveComposite(ctx context.Context, ownerID string, req models.SaveCompositeGradesRequest) (*models.GradeSaveResult, error) {
	f.composite = req
	return &models.GradeSaveResult{AssessmentID: req.AssessmentID, Saved: len(req.Students)}, nil
}

type fakeDashboardSvc struct {
	teacherArgs  []string
	teacherHit   bool
	teacherErr   error
	studentID    string
	exportFormat export.Format
}

func (f *fakeDashboardSvc) Teacher(ctx context.Context, ownerID, classID, assessmentID string) (*dto.TeacherDashboardResponse, bool, error) {
	f.teacherArgs = []string{ownerID, classID, assessmentID}
	if f.teacherErr != nil {
		return nil, false, f.teacherErr
	}
	return &dto.TeacherDashboardResponse{ClassID: classID, AssessmentID: assessmentID, ClassAverage: 8.4}, f.teacherHit, nil
}

func (f *fakeDashboardSvc) Student(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	f.studentID = studentID
	return &dto.StudentDashboardResponse{StudentID: studentID}, true, nil
}

func (f *fakeDashboardSvc) StudentGrades(ctx context.Context, studentID string) (*dto.StudentGradesResponse, error) {
	f.studentID = studentID
	return &dto.StudentGradesResponse{Items: []dto.StudentGradeItem{}, Totals: dto.StudentGradeTotals{}}, nil
}

func (f *fakeDashboardSvc) Export(ctx context.Context, ownerID, classID, assessmentID string, format export.Format) (*service.ExportResult, error) {
	f.exportFormat = format
	return &service.ExportResult{Filename: "Simulado_2.csv", ContentType: "text/csv", Data: []byte("#,Student,Score\n")}, nil
}

type routerFixture struct {
	router      *gin.Engine
	auth        *fakeAuthSvc
	classes     *fakeClassSvc
	students    *fakeStudentSvc
	subjects    *fakeSubjectSvc
	assessments *fakeAssessmentSvc
	grades      *fakeGradeSvc
	dashboards  *fakeDashboardSvc
}

func newRouterFixture() *routerFixture {
	gin.SetMode(gin.TestMode)
	f := &routerFixture{
		auth:        &fakeAuthSvc{},
		classes:     &fakeClassSvc{},
		students:    &fakeStudentSvc{},
		subjects:    &fakeSubjectSvc{},
		assessments: &fakeAssessmentSvc{},
		grades:      &fakeGradeSvc{},
		dashboards:  &fakeDashboardSvc{},
	}
	f.router = NewRouter(RouterConfig{
		Tokens: staticTokens{
			teacherToken: {UserID: teacherUserID, Role: models.RoleTeacher},
			studentToken: {UserID: "u-ana", Role: models.RoleStudent, StudentID: "s-a"},
		},
		Metrics:     service.NewMetricsService(),
		Auth:        NewAuthHandler(f.auth),
		Classes:     NewClassHandler(f.classes),
		Students:    NewStudentHandler(f.students),
		Subjects:    NewSubjectHandler(f.subjects),
		Assessments: NewAssessmentHandler(f.assessments),
		Grades:      NewGradeHandler(f.grades),
		Dashboards:  NewDashboardHandler(f.dashboards, f.dashboards),
		Observe:     NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return f
}

func (f *routerFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}
