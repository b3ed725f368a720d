package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/requestid"
)

// RouterConfig carries the handlers and cross-cutting dependencies of the API.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	Metrics        *service.MetricsService

	Auth        *AuthHandler
	Classes     *ClassHandler
	Students    *StudentHandler
	Subjects    *SubjectHandler
	Assessments *AssessmentHandler
	Grades      *GradeHandler
	Dashboards  *DashboardHandler
	Observe     *MetricsHandler
}

// NewRouter assembles the gin engine with every route of the API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", cfg.Observe.Health)
	r.GET("/ready", cfg.Observe.Ready)
	r.GET("/metrics", cfg.Observe.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.ResponseMeta())
	api.POST("/auth/login", cfg.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(cfg.Tokens))
	authed.POST("/auth/change-password", cfg.Auth.ChangePassword)

	teacher := authed.Group("")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/classes", cfg.Classes.List)
		teacher.POST("/classes", cfg.Classes.Create)
		teacher.GET("/classes/:id", cfg.Classes.Get)
		teacher.PUT("/classes/:id", cfg.Classes.Update)
		teacher.DELETE("/classes/:id", cfg.Classes.Delete)

		teacher.GET("/students", cfg.Students.List)
		teacher.POST("/students", cfg.Students.Create)
		teacher.GET("/students/:id", cfg.Students.Get)
		teacher.PUT("/students/:id", cfg.Students.Update)
		teacher.DELETE("/students/:id", cfg.Students.Delete)

		teacher.GET("/subjects", cfg.Subjects.List)
		teacher.POST("/subjects", cfg.Subjects.Create)
		teacher.GET("/subjects/:id", cfg.Subjects.Get)
		teacher.PUT("/subjects/:id", cfg.Subjects.Update)
		teacher.DELETE("/subjects/:id", cfg.Subjects.Delete)

		teacher.GET("/assessments", cfg.Assessments.List)
		teacher.POST("/assessments", cfg.Assessments.Create)
		teacher.GET("/assessments/:id", cfg.Assessments.Get)
		teacher.PUT("/assessments/:id", cfg.Assessments.Update)
		teacher.DELETE("/assessments/:id", cfg.Assessments.Delete)
		teacher.POST("/assessments/:id/publish", cfg.Assessments.Publish)
		teacher.DELETE("/assessments/:id/publish", cfg.Assessments.Unpublish)
		teacher.GET("/assessments/:id/grades", cfg.Grades.ListByAssessment)

		teacher.POST("/grades", cfg.Grades.SaveCommon)
		teacher.POST("/grades/composite", cfg.Grades.SaveComposite)

		teacher.GET("/dashboard", cfg.Dashboards.Teacher)
		teacher.GET("/dashboard/export", cfg.Dashboards.Export)
		teacher.GET("/metrics/summary", cfg.Observe.Snapshot)
	}

	student := authed.Group("/me")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/dashboard", cfg.Dashboards.MyDashboard)
		student.GET("/grades", cfg.Dashboards.MyGrades)
	}

	return r
}
