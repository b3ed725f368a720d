package models

import "time"

// AssessmentKind distinguishes directly scored assessments from multi-subject ones.
type AssessmentKind string

const (
	// AssessmentCommon receives one direct score per student.
	AssessmentCommon AssessmentKind = "COMMON"
	// AssessmentComposite is divided into weighted subject components.
	AssessmentComposite AssessmentKind = "COMPOSITE"
)

// Assessment is a graded event of a class.
type Assessment struct {
	ID           string             `db:"id" json:"id"`
	ClassID      string             `db:"class_id" json:"class_id"`
	Name         string             `db:"name" json:"name"`
	Kind         AssessmentKind     `db:"kind" json:"kind"`
	Weight       float64            `db:"weight" json:"weight"`
	AcademicYear int                `db:"academic_year" json:"academic_year"`
	Date         *time.Time         `db:"assessment_date" json:"date,omitempty"`
	Published    bool               `db:"published" json:"published"`
	PublishedAt  *time.Time         `db:"published_at" json:"published_at,omitempty"`
	ClassName    string             `db:"class_name" json:"class_name,omitempty"`
	GradeCount   int                `db:"grade_count" json:"grade_count"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
	Components   []SubjectComponent `db:"-" json:"components,omitempty"`
}

// IsComposite reports whether the assessment is split into subject components.
func (a Assessment) IsComposite() bool {
	return a.Kind == AssessmentComposite
}

// SubjectComponent is one weighted subject slice of a composite assessment.
type SubjectComponent struct {
	ID           string  `db:"id" json:"id"`
	AssessmentID string  `db:"assessment_id" json:"assessment_id"`
	SubjectID    string  `db:"subject_id" json:"subject_id"`
	SubjectName  string  `db:"subject_name" json:"subject_name"`
	Weight       float64 `db:"weight" json:"weight"`
}

// AssessmentFilter scopes assessment listings.
type AssessmentFilter struct {
	OwnerID       string
	ClassID       string
	Kind          AssessmentKind
	PublishedOnly bool
}

// ComponentInput describes a component in create/update payloads.
type ComponentInput struct {
	SubjectID string  `json:"subject_id" validate:"required"`
	Weight    float64 `json:"weight" validate:"gte=0.1,lte=100"`
}

// CreateAssessmentRequest is the payload for creating an assessment.
type CreateAssessmentRequest struct {
	ClassID      string           `json:"class_id" validate:"required"`
	Name         string           `json:"name" validate:"required,min=3,max=100"`
	Kind         AssessmentKind   `json:"kind" validate:"required,oneof=COMMON COMPOSITE"`
	Weight       float64          `json:"weight" validate:"gte=0,lte=100"`
	AcademicYear int              `json:"academic_year" validate:"required,min=2000,max=2100"`
	Date         *time.Time       `json:"date"`
	Components   []ComponentInput `json:"components" validate:"omitempty,dive"`
}

// UpdateAssessmentRequest is the payload for updating an assessment. The kind
// is fixed at creation; components are replaced only for composites.
type UpdateAssessmentRequest struct {
	Name         string           `json:"name" validate:"required,min=3,max=100"`
	Weight       float64          `json:"weight" validate:"gte=0,lte=100"`
	AcademicYear int              `json:"academic_year" validate:"required,min=2000,max=2100"`
	Date         *time.Time       `json:"date"`
	Components   []ComponentInput `json:"components" validate:"omitempty,dive"`
}
