package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gradebook-api/api/swagger"
	"github.com/noah-isme/gradebook-api/internal/handler"
	"github.com/noah-isme/gradebook-api/internal/repository"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/cache"
	"github.com/noah-isme/gradebook-api/pkg/config"
	"github.com/noah-isme/gradebook-api/pkg/database"
	"github.com/noah-isme/gradebook-api/pkg/jobs"
	"github.com/noah-isme/gradebook-api/pkg/logger"
)

// @title Gradebook API
// @version 1.0.0
// @description Classes, assessments, grades and dashboards for teachers and students.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheEnabled := cfg.Dashboard.CacheEnabled
	var cacheRepo *repository.CacheRepository
	if cacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboards will not be cached", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
			cacheEnabled = false
		}
		cacheRepo = repository.NewCacheRepository(client, "gradebook:")
	} else {
		cacheRepo = repository.NewCacheRepository(nil, "gradebook:")
	}
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheEnabled)
	invalidations := jobs.NewQueue("cache-invalidation", cacheSvc.InvalidationHandler(), jobs.QueueConfig{
		Workers:    cfg.Cache.Workers,
		MaxRetries: cfg.Cache.MaxRetries,
		RetryDelay: cfg.Cache.RetryDelay,
		Logger:     logr,
	})
	invalidations.Start(ctx)
	defer invalidations.Stop()
	cacheSvc.UseQueue(invalidations)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		BcryptCost:        cfg.Auth.BcryptCost,
	})
	classSvc := service.NewClassService(classRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, cacheSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, validate, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, classRepo, subjectRepo, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, assessmentRepo, studentRepo, cacheSvc, metricsSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Classes:     classRepo,
		Assessments: assessmentRepo,
		Students:    studentRepo,
		Grades:      gradeRepo,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:     cfg.Dashboard.CacheTTL,
			EvolutionMax: cfg.Dashboard.EvolutionMax,
		},
	})
	exportSvc := service.NewExportService(dashboardSvc, logr)

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Tokens:         authSvc,
		Metrics:        metricsSvc,
		Auth:           handler.NewAuthHandler(authSvc),
		Classes:        handler.NewClassHandler(classSvc),
		Students:       handler.NewStudentHandler(studentSvc),
		Subjects:       handler.NewSubjectHandler(subjectSvc),
		Assessments:    handler.NewAssessmentHandler(assessmentSvc),
		Grades:         handler.NewGradeHandler(gradeSvc),
		Dashboards:     handler.NewDashboardHandler(dashboardSvc, exportSvc),
		Observe:        handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("dashboard_cache", cacheEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
