package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/pkg/database"
)

const (
	upsertDirectGrade = `INSERT INTO grades (id, student_id, assessment_id, component_id, score, created_at, updated_at)
        VALUES (:id, :student_id, :assessment_id, NULL, :score, :created_at, :updated_at)
        ON CONFLICT (student_id, assessment_id) WHERE component_id IS NULL
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	upsertComponentGrade = `INSERT INTO grades (id, student_id, assessment_id, component_id, score, created_at, updated_at)
        VALUES (:id, :student_id, :assessment_id, :component_id, :score, :created_at, :updated_at)
        ON CONFLICT (student_id, assessment_id, component_id) WHERE component_id IS NOT NULL
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
)

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByAssessments returns every grade recorded for the given assessments.
func (r *GradeRepository) ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.GradeRecord, error) {
	grades := make([]models.GradeRecord, 0)
	if len(assessmentIDs) == 0 {
		return grades, nil
	}
	const query = `SELECT g.id, g.student_id, g.assessment_id, g.component_id, g.score, g.created_at, g.updated_at, s.name AS student_name
        FROM grades g JOIN students s ON s.id = g.student_id
        WHERE g.assessment_id = ANY($1)
        ORDER BY g.assessment_id, s.name, g.component_id NULLS FIRST`
	if err := r.db.SelectContext(ctx, &grades, query, pq.Array(assessmentIDs)); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// BulkUpsert stores grades in one transaction, updating the score when the
// student already has a grade for the same assessment and component.
func (r *GradeRepository) BulkUpsert(ctx context.Context, grades []models.GradeRecord) error {
	if len(grades) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range grades {
			g := &grades[i]
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			if g.CreatedAt.IsZero() {
				g.CreatedAt = now
			}
			g.UpdatedAt = now
			query := upsertDirectGrade
			if g.ComponentID != nil {
				query = upsertComponentGrade
			}
			if _, err := tx.NamedExecContext(ctx, query, g); err != nil {
				return fmt.Errorf("upsert grade: %w", err)
			}
		}
		return nil
	})
}
