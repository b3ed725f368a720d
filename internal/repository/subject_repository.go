package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns the subjects of an owner ordered by name.
func (r *SubjectRepository) List(ctx context.Context, ownerID string) ([]models.Subject, error) {
	const query = `SELECT id, name, owner_id, created_at, updated_at FROM subjects WHERE owner_id = $1 ORDER BY name ASC`
	subjects := make([]models.Subject, 0)
	if err := r.db.SelectContext(ctx, &subjects, query, ownerID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindOwned returns a subject belonging to ownerID.
func (r *SubjectRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Subject, error) {
	const query = `SELECT id, name, owner_id, created_at, updated_at FROM subjects WHERE id = $1 AND owner_id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// FindOwnedByIDs returns the subjects among ids that belong to ownerID.
func (r *SubjectRepository) FindOwnedByIDs(ctx context.Context, ownerID string, ids []string) ([]models.Subject, error) {
	subjects := make([]models.Subject, 0, len(ids))
	if len(ids) == 0 {
		return subjects, nil
	}
	const query = `SELECT id, name, owner_id, created_at, updated_at FROM subjects WHERE owner_id = $1 AND id = ANY($2)`
	if err := r.db.SelectContext(ctx, &subjects, query, ownerID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find subjects by ids: %w", err)
	}
	return subjects, nil
}

// ClassIDsUsing returns the classes with an assessment component on subjectID.
func (r *SubjectRepository) ClassIDsUsing(ctx context.Context, subjectID string) ([]string, error) {
	const query = `SELECT DISTINCT a.class_id FROM assessment_components ac
        JOIN assessments a ON a.id = ac.assessment_id
        WHERE ac.subject_id = $1 ORDER BY a.class_id`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, subjectID); err != nil {
		return nil, fmt.Errorf("list classes using subject: %w", err)
	}
	return ids, nil
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, name, owner_id, created_at, updated_at)
        VALUES (:id, :name, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update renames an owned subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, updated_at = :updated_at WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an owned subject.
func (r *SubjectRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireAffected(res)
}
