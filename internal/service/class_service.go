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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error)
	FindOwned(ctx context.Context, id, ownerID string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id, ownerID string) error
}

type dashboardInvalidator interface {
	Schedule(ctx context.Context, patterns ...string)
}

// ClassService coordinates class operations for the owning teacher.
type ClassService struct {
	repo      classRepository
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the teacher's classes.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns one owned class.
func (s *ClassService) Get(ctx context.Context, ownerID, id string) (*models.Class, error) {
	class, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create adds a new class owned by ownerID.
func (s *ClassService) Create(ctx context.Context, ownerID string, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{Name: req.Name, AcademicYear: req.AcademicYear, OwnerID: ownerID}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("owner_id", ownerID))
	return class, nil
}

// Update modifies an owned class.
func (s *ClassService) Update(ctx context.Context, ownerID, id string, req models.UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	class.Name = req.Name
	class.AcademicYear = req.AcademicYear
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	invalidateClass(ctx, s.cache, class.ID)
	return class, nil
}

// Delete removes an owned class with everything enrolled in it.
func (s *ClassService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	invalidateClass(ctx, s.cache, id)
	return nil
}
