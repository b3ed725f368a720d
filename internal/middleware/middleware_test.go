package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"meta": Meta(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func perform(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}}
	r := newRouter(JWT(validator))

	rec := perform(r, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(r, "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, validator.token)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	validator := &stubValidator{err: appErrors.Wrap(errors.New("expired"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")}
	rec := perform(newRouter(JWT(validator)), "Bearer stale")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, rec))
	assert.Equal(t, "stale", validator.token)
}

func TestRequireRoles(t *testing.T) {
	teacher := &stubValidator{claims: &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}}
	student := &stubValidator{claims: &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, StudentID: "s-a"}}
	unlinked := &stubValidator{claims: &models.JWTClaims{UserID: "u3", Role: models.RoleStudent}}

	rec := perform(newRouter(JWT(teacher), RequireRoles(models.RoleTeacher)), "Bearer t")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(newRouter(JWT(student), RequireRoles(models.RoleTeacher)), "Bearer s")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = perform(newRouter(JWT(student), RequireRoles(models.RoleStudent)), "Bearer s")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(newRouter(JWT(unlinked), RequireRoles(models.RoleStudent)), "Bearer u")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = perform(newRouter(RequireRoles(models.RoleTeacher)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResponseMeta(t *testing.T) {
	r := newRouter(ResponseMeta(), func(c *gin.Context) {
		MarkCacheHit(c, true)
		c.Next()
	})
	rec := perform(r, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Contains(t, body.Meta, "processing_time_ms")

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, Meta(c))
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/classes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/classes/a", "/classes/b", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.EqualValues(t, 3, metrics.Snapshot().RequestsTotal)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `path="/classes/:id"`)
	assert.Contains(t, rec.Body.String(), `path="unmatched"`)
}
