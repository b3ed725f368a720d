package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradebook-api/internal/models"
)

const classSelect = `SELECT c.id, c.name, c.academic_year, c.owner_id, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count,
        (SELECT COUNT(*) FROM assessments a WHERE a.class_id = c.id) AS assessment_count
        FROM classes c`

// ClassRepository handles persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns the classes owned by filter.OwnerID, newest year first.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	conditions := []string{"c.owner_id = $1"}
	args := []interface{}{filter.OwnerID}
	if filter.AcademicYear > 0 {
		conditions = append(conditions, fmt.Sprintf("c.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY c.academic_year DESC, c.name ASC", classSelect, strings.Join(conditions, " AND "))

	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindOwned returns a class only when it belongs to ownerID.
func (r *ClassRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Class, error) {
	query := classSelect + ` WHERE c.id = $1 AND c.owner_id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindByID returns a class by identifier regardless of owner.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := classSelect + ` WHERE c.id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, academic_year, owner_id, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update changes the name and academic year of an owned class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, academic_year = :academic_year, updated_at = :updated_at
        WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an owned class together with its students and assessments.
func (r *ClassRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
