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
	"github.com/noah-isme/gradebook-api/pkg/database"
)

const assessmentSelect = `SELECT a.id, a.class_id, a.name, a.kind, a.weight, a.academic_year, a.assessment_date,
        a.published, a.published_at, a.created_at, a.updated_at, c.name AS class_name,
        (SELECT COUNT(*) FROM grades g WHERE g.assessment_id = a.id) AS grade_count
        FROM assessments a JOIN classes c ON c.id = a.class_id`

// AssessmentRepository persists assessments and their subject components.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// List returns assessments of the owner's classes, most recent first.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	conditions := []string{"c.owner_id = $1"}
	args := []interface{}{filter.OwnerID}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("a.kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "a.published = TRUE")
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY a.assessment_date DESC NULLS LAST, a.created_at DESC",
		assessmentSelect, strings.Join(conditions, " AND "))

	assessments := make([]models.Assessment, 0)
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// ListByClass returns every assessment of a class in chronological order.
func (r *AssessmentRepository) ListByClass(ctx context.Context, classID string, publishedOnly bool) ([]models.Assessment, error) {
	query := assessmentSelect + ` WHERE a.class_id = $1`
	if publishedOnly {
		query += ` AND a.published = TRUE`
	}
	query += ` ORDER BY a.assessment_date ASC NULLS LAST, a.created_at ASC`

	assessments := make([]models.Assessment, 0)
	if err := r.db.SelectContext(ctx, &assessments, query, classID); err != nil {
		return nil, fmt.Errorf("list class assessments: %w", err)
	}
	return assessments, nil
}

// FindOwned returns an assessment with its components when its class belongs to ownerID.
func (r *AssessmentRepository) FindOwned(ctx context.Context, id, ownerID string) (*models.Assessment, error) {
	query := assessmentSelect + ` WHERE a.id = $1 AND c.owner_id = $2`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	components, err := r.ListComponents(ctx, []string{assessment.ID})
	if err != nil {
		return nil, err
	}
	assessment.Components = components
	return &assessment, nil
}

// ListComponents returns the components of the given assessments in entry order.
func (r *AssessmentRepository) ListComponents(ctx context.Context, assessmentIDs []string) ([]models.SubjectComponent, error) {
	components := make([]models.SubjectComponent, 0)
	if len(assessmentIDs) == 0 {
		return components, nil
	}
	const query = `SELECT ac.id, ac.assessment_id, ac.subject_id, s.name AS subject_name, ac.weight
        FROM assessment_components ac JOIN subjects s ON s.id = ac.subject_id
        WHERE ac.assessment_id = ANY($1)
        ORDER BY ac.assessment_id, ac.position, ac.id`
	if err := r.db.SelectContext(ctx, &components, query, pq.Array(assessmentIDs)); err != nil {
		return nil, fmt.Errorf("list assessment components: %w", err)
	}
	return components, nil
}

// Create inserts an assessment and its components atomically.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assessment.CreatedAt = now
	assessment.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO assessments (id, class_id, name, kind, weight, academic_year, assessment_date, published, created_at, updated_at)
            VALUES (:id, :class_id, :name, :kind, :weight, :academic_year, :assessment_date, FALSE, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, assessment); err != nil {
			return fmt.Errorf("create assessment: %w", err)
		}
		return upsertComponents(ctx, tx, assessment)
	})
}

// Update stores new attributes and, for composites, reconciles the component
// list by subject so that grades of kept subjects survive.
func (r *AssessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	assessment.UpdatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE assessments SET name = :name, weight = :weight, academic_year = :academic_year,
            assessment_date = :assessment_date, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, assessment)
		if err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if !assessment.IsComposite() {
			return nil
		}
		if err := upsertComponents(ctx, tx, assessment); err != nil {
			return err
		}
		subjectIDs := make([]string, len(assessment.Components))
		for i, c := range assessment.Components {
			subjectIDs[i] = c.SubjectID
		}
		const prune = `DELETE FROM assessment_components WHERE assessment_id = $1 AND NOT (subject_id = ANY($2))`
		if _, err := tx.ExecContext(ctx, prune, assessment.ID, pq.Array(subjectIDs)); err != nil {
			return fmt.Errorf("prune assessment components: %w", err)
		}
		return nil
	})
}

func upsertComponents(ctx context.Context, tx *sqlx.Tx, assessment *models.Assessment) error {
	const query = `INSERT INTO assessment_components (id, assessment_id, subject_id, weight, position)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (assessment_id, subject_id) DO UPDATE SET weight = EXCLUDED.weight, position = EXCLUDED.position
        RETURNING id`
	for i := range assessment.Components {
		c := &assessment.Components[i]
		c.AssessmentID = assessment.ID
		candidate := c.ID
		if candidate == "" {
			candidate = uuid.NewString()
		}
		if err := tx.GetContext(ctx, &c.ID, query, candidate, assessment.ID, c.SubjectID, c.Weight, i); err != nil {
			return fmt.Errorf("upsert assessment component: %w", err)
		}
	}
	return nil
}

// SetPublished toggles visibility of an assessment to students.
func (r *AssessmentRepository) SetPublished(ctx context.Context, id string, published bool, at *time.Time) error {
	const query = `UPDATE assessments SET published = $2, published_at = $3, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, published, at)
	if err != nil {
		return fmt.Errorf("set assessment published: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an assessment with its components and grades.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return requireAffected(res)
}
