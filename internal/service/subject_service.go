package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, ownerID string) ([]models.Subject, error)
	FindOwned(ctx context.Context, id, ownerID string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id, ownerID string) error
	ClassIDsUsing(ctx context.Context, subjectID string) ([]string, error)
}

// SubjectService manages a teacher's subjects.
type SubjectService struct {
	repo      subjectRepository
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectRepository, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the owner's subjects.
func (s *SubjectService) List(ctx context.Context, ownerID string) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns an owned subject.
func (s *SubjectService) Get(ctx context.Context, ownerID, id string) (*models.Subject, error) {
	subject, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a subject.
func (s *SubjectService) Create(ctx context.Context, ownerID string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{Name: req.Name, OwnerID: ownerID}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update renames an owned subject.
func (s *SubjectService) Update(ctx context.Context, ownerID, id string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	subject.Name = req.Name
	if err := s.repo.Update(ctx, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.invalidateUsers(ctx, subject.ID)
	return subject, nil
}

// invalidateUsers drops dashboards of every class whose composite
// assessments show the subject name.
func (s *SubjectService) invalidateUsers(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	classIDs, err := s.repo.ClassIDsUsing(ctx, subjectID)
	if err != nil {
		s.logger.Warn("failed to resolve classes for subject", zap.String("subject_id", subjectID), zap.Error(err))
		return
	}
	for _, classID := range classIDs {
		invalidateClass(ctx, s.cache, classID)
	}
}

// Delete removes an owned subject. Subjects referenced by a composite
// assessment are protected by the database and surface as a conflict.
func (s *SubjectService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "subject is used by an assessment")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
