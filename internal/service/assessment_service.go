package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type assessmentRepository interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error)
	FindOwned(ctx context.Context, id, ownerID string) (*models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	Update(ctx context.Context, assessment *models.Assessment) error
	SetPublished(ctx context.Context, id string, published bool, at *time.Time) error
	Delete(ctx context.Context, id string) error
}

type ownedSubjectLookup interface {
	FindOwnedByIDs(ctx context.Context, ownerID string, ids []string) ([]models.Subject, error)
}

// AssessmentService manages assessments and their publication.
type AssessmentService struct {
	repo      assessmentRepository
	classes   ownedClassFinder
	subjects  ownedSubjectLookup
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssessmentService constructs AssessmentService.
func NewAssessmentService(repo assessmentRepository, classes ownedClassFinder, subjects ownedSubjectLookup, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		repo:      repo,
		classes:   classes,
		subjects:  subjects,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the owner's assessments.
func (s *AssessmentService) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	if filter.Kind != "" && filter.Kind != models.AssessmentCommon && filter.Kind != models.AssessmentComposite {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be COMMON or COMPOSITE")
	}
	assessments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// Get returns an owned assessment with its components.
func (s *AssessmentService) Get(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	assessment, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return assessment, nil
}

// Create adds an assessment to an owned class. Composite assessments need at
// least one component, each on a distinct subject owned by the teacher.
func (s *AssessmentService) Create(ctx context.Context, ownerID string, req models.CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if _, err := s.classes.FindOwned(ctx, req.ClassID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	assessment := &models.Assessment{
		ClassID:      req.ClassID,
		Name:         req.Name,
		Kind:         req.Kind,
		Weight:       req.Weight,
		AcademicYear: req.AcademicYear,
		Date:         req.Date,
	}
	if assessment.IsComposite() {
		components, err := s.resolveComponents(ctx, ownerID, req.Components)
		if err != nil {
			return nil, err
		}
		assessment.Components = components
	} else if len(req.Components) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "components are only accepted for COMPOSITE assessments")
	}

	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.logger.Info("assessment created",
		zap.String("assessment_id", assessment.ID),
		zap.String("class_id", assessment.ClassID),
		zap.String("kind", string(assessment.Kind)),
	)
	invalidateClass(ctx, s.cache, assessment.ClassID)
	return assessment, nil
}

// Update changes an owned assessment. For composites the component list is
// replaced; grades of subjects that stay are kept.
func (s *AssessmentService) Update(ctx context.Context, ownerID, id string, req models.UpdateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessment, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if assessment.IsComposite() {
		components, err := s.resolveComponents(ctx, ownerID, req.Components)
		if err != nil {
			return nil, err
		}
		assessment.Components = components
	} else if len(req.Components) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "components are only accepted for COMPOSITE assessments")
	}
	assessment.Name = req.Name
	assessment.Weight = req.Weight
	assessment.AcademicYear = req.AcademicYear
	assessment.Date = req.Date

	if err := s.repo.Update(ctx, assessment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment")
	}
	invalidateClass(ctx, s.cache, assessment.ClassID)
	return assessment, nil
}

// Delete removes an owned assessment and its grades.
func (s *AssessmentService) Delete(ctx context.Context, ownerID, id string) error {
	assessment, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, assessment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assessment")
	}
	invalidateClass(ctx, s.cache, assessment.ClassID)
	return nil
}

// Publish makes an assessment's results visible to students.
func (s *AssessmentService) Publish(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	return s.setPublished(ctx, ownerID, id, true)
}

// Unpublish hides an assessment's results from students again.
func (s *AssessmentService) Unpublish(ctx context.Context, ownerID, id string) (*models.Assessment, error) {
	return s.setPublished(ctx, ownerID, id, false)
}

func (s *AssessmentService) setPublished(ctx context.Context, ownerID, id string, publish bool) (*models.Assessment, error) {
	assessment, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if assessment.Published == publish {
		if publish {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assessment is already published")
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment is not published")
	}

	var at *time.Time
	if publish {
		now := s.now().UTC()
		at = &now
	}
	if err := s.repo.SetPublished(ctx, assessment.ID, publish, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change publication")
	}
	assessment.Published = publish
	assessment.PublishedAt = at
	s.logger.Info("assessment publication changed", zap.String("assessment_id", assessment.ID), zap.Bool("published", publish))
	invalidateClass(ctx, s.cache, assessment.ClassID)
	return assessment, nil
}

func (s *AssessmentService) resolveComponents(ctx context.Context, ownerID string, inputs []models.ComponentInput) ([]models.SubjectComponent, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "a COMPOSITE assessment needs at least one subject component")
	}
	ids := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Weight <= 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "component weights must be positive")
		}
		if _, dup := seen[in.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s appears more than once", in.SubjectID))
		}
		seen[in.SubjectID] = struct{}{}
		ids = append(ids, in.SubjectID)
	}

	subjects, err := s.subjects.FindOwnedByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	names := make(map[string]string, len(subjects))
	for _, subj := range subjects {
		names[subj.ID] = subj.Name
	}

	components := make([]models.SubjectComponent, 0, len(inputs))
	for _, in := range inputs {
		name, ok := names[in.SubjectID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s not found", in.SubjectID))
		}
		components = append(components, models.SubjectComponent{SubjectID: in.SubjectID, SubjectName: name, Weight: in.Weight})
	}
	return components, nil
}
