package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type gradeRepository interface {
	ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.GradeRecord, error)
	BulkUpsert(ctx context.Context, grades []models.GradeRecord) error
}

type ownedAssessmentFinder interface {
	FindOwned(ctx context.Context, id, ownerID string) (*models.Assessment, error)
}

type dashboardFlusher interface {
	Flush(ctx context.Context, patterns ...string)
}

type enrollmentCounter interface {
	CountInClass(ctx context.Context, classID string, ids []string) (int, error)
}

// GradeService records grades for common and composite assessments.
type GradeService struct {
	repo        gradeRepository
	assessments ownedAssessmentFinder
	students    enrollmentCounter
	cache       dashboardFlusher
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, assessments ownedAssessmentFinder, students enrollmentCounter, cache dashboardFlusher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:        repo,
		assessments: assessments,
		students:    students,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// List returns every grade recorded for an owned assessment.
func (s *GradeService) List(ctx context.Context, ownerID, assessmentID string) ([]models.GradeRecord, error) {
	assessment, err := s.loadAssessment(ctx, ownerID, assessmentID)
	if err != nil {
		return nil, err
	}
	grades, err := s.repo.ListByAssessments(ctx, []string{assessment.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// SaveCommon upserts the direct scores of a common assessment.
func (s *GradeService) SaveCommon(ctx context.Context, ownerID string, req models.SaveCommonGradesRequest) (*models.GradeSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	assessment, err := s.loadAssessment(ctx, ownerID, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.IsComposite() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment is COMPOSITE; use the composite grades endpoint")
	}

	studentIDs := make([]string, 0, len(req.Grades))
	records := make([]models.GradeRecord, 0, len(req.Grades))
	for _, g := range req.Grades {
		studentIDs = append(studentIDs, g.StudentID)
		records = append(records, models.GradeRecord{StudentID: g.StudentID, AssessmentID: assessment.ID, Score: *g.Score})
	}
	if err := s.ensureEnrolled(ctx, assessment.ClassID, studentIDs); err != nil {
		return nil, err
	}
	return s.persist(ctx, assessment, records)
}

// SaveComposite upserts per-subject scores of a composite assessment. Every
// component must belong to the assessment.
func (s *GradeService) SaveComposite(ctx context.Context, ownerID string, req models.SaveCompositeGradesRequest) (*models.GradeSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	assessment, err := s.loadAssessment(ctx, ownerID, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if !assessment.IsComposite() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment is COMMON; use the grades endpoint")
	}

	components := make(map[string]struct{}, len(assessment.Components))
	for _, c := range assessment.Components {
		components[c.ID] = struct{}{}
	}

	studentIDs := make([]string, 0, len(req.Students))
	records := make([]models.GradeRecord, 0, len(req.Students)*len(assessment.Components))
	for _, student := range req.Students {
		studentIDs = append(studentIDs, student.StudentID)
		seen := make(map[string]struct{}, len(student.Scores))
		for _, score := range student.Scores {
			if _, ok := components[score.ComponentID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %s does not belong to the assessment", score.ComponentID))
			}
			if _, dup := seen[score.ComponentID]; dup {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %s is scored twice for student %s", score.ComponentID, student.StudentID))
			}
			seen[score.ComponentID] = struct{}{}
			componentID := score.ComponentID
			records = append(records, models.GradeRecord{
				StudentID:    student.StudentID,
				AssessmentID: assessment.ID,
				ComponentID:  &componentID,
				Score:        *score.Score,
			})
		}
	}
	if err := s.ensureEnrolled(ctx, assessment.ClassID, studentIDs); err != nil {
		return nil, err
	}
	return s.persist(ctx, assessment, records)
}

func (s *GradeService) loadAssessment(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}

// ensureEnrolled rejects duplicates and students outside classID.
func (s *GradeService) ensureEnrolled(ctx context.Context, classID string, studentIDs []string) error {
	unique := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		if _, dup := unique[id]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s appears more than once", id))
		}
		unique[id] = struct{}{}
	}
	count, err := s.students.CountInClass(ctx, classID, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify students")
	}
	if count != len(studentIDs) {
		return appErrors.Clone(appErrors.ErrValidation, "every student must belong to the assessment's class")
	}
	return nil
}

func (s *GradeService) persist(ctx context.Context, assessment *models.Assessment, records []models.GradeRecord) (*models.GradeSaveResult, error) {
	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grades")
	}
	s.metrics.RecordGradesSaved(assessment.Kind, len(records))
	s.logger.Info("grades saved",
		zap.String("assessment_id", assessment.ID),
		zap.String("kind", string(assessment.Kind)),
		zap.Int("count", len(records)),
	)
	flushClass(ctx, s.cache, assessment.ClassID)
	return &models.GradeSaveResult{AssessmentID: assessment.ID, Saved: len(records)}, nil
}
