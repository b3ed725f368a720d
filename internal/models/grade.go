package models

import "time"

// GradeRecord is a score achieved by a student. ComponentID is set for the
// per-subject scores of a composite assessment and nil for direct scores.
type GradeRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	ComponentID  *string   `db:"component_id" json:"component_id,omitempty"`
	Score        float64   `db:"score" json:"score"`
	StudentName  string    `db:"student_name" json:"student_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CommonGradeInput is one direct score in a save payload.
type CommonGradeInput struct {
	StudentID string   `json:"student_id" validate:"required"`
	Score     *float64 `json:"score" validate:"required,gte=0"`
}

// SaveCommonGradesRequest stores the direct scores of a common assessment.
type SaveCommonGradesRequest struct {
	AssessmentID string             `json:"assessment_id" validate:"required"`
	Grades       []CommonGradeInput `json:"grades" validate:"required,min=1,dive"`
}

// ComponentScoreInput is one per-subject score in a composite payload.
type ComponentScoreInput struct {
	ComponentID string   `json:"component_id" validate:"required"`
	Score       *float64 `json:"score" validate:"required,gte=0"`
}

// CompositeGradeInput groups one student's component scores.
type CompositeGradeInput struct {
	StudentID string                `json:"student_id" validate:"required"`
	Scores    []ComponentScoreInput `json:"scores" validate:"required,min=1,dive"`
}

// SaveCompositeGradesRequest stores the per-subject scores of a composite assessment.
type SaveCompositeGradesRequest struct {
	AssessmentID string                `json:"assessment_id" validate:"required"`
	Students     []CompositeGradeInput `json:"students" validate:"required,min=1,dive"`
}

// GradeSaveResult summarises a bulk save.
type GradeSaveResult struct {
	AssessmentID string `json:"assessment_id"`
	Saved        int    `json:"saved"`
}
