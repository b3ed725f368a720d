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
	"github.com/lib/pq"

	"github.com/noah-isme/gradebook-api/internal/models"
)

const studentSelect = `SELECT s.id, s.class_id, s.name, c.name AS class_name, s.created_at, s.updated_at
        FROM students s JOIN classes c ON c.id = s.class_id`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns the students of classes owned by filter.OwnerID.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"c.owner_id = $1"}
	args := []interface{}{filter.OwnerID}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY c.name ASC, s.name ASC", studentSelect, strings.Join(conditions, " AND "))

	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListByClass returns the class roster in a stable order.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := studentSelect + ` WHERE s.class_id = $1 ORDER BY s.name ASC, s.created_at ASC, s.id ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return students, nil
}

// FindOwned returns a student whose class belongs to ownerID.
func (r *StudentRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Student, error) {
	query := studentSelect + ` WHERE s.id = $1 AND c.owner_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := studentSelect + ` WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// CountInClass reports how many of ids are enrolled in classID.
func (r *StudentRepository) CountInClass(ctx context.Context, classID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `SELECT COUNT(*) FROM students WHERE class_id = $1 AND id = ANY($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, class_id, name, created_at, updated_at)
        VALUES (:id, :class_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update renames a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a student and, through cascades, their grades and login.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}
