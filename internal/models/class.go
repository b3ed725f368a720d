package models

import "time"

// Class represents a teacher-owned class for one academic year.
type Class struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	AcademicYear    int       `db:"academic_year" json:"academic_year"`
	OwnerID         string    `db:"owner_id" json:"owner_id"`
	StudentCount    int       `db:"student_count" json:"student_count"`
	AssessmentCount int       `db:"assessment_count" json:"assessment_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	OwnerID      string
	AcademicYear int
	Search       string
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name         string `json:"name" validate:"required,min=3,max=100"`
	AcademicYear int    `json:"academic_year" validate:"required,min=2000,max=2100"`
}

// UpdateClassRequest is the payload for updating a class.
type UpdateClassRequest struct {
	Name         string `json:"name" validate:"required,min=3,max=100"`
	AcademicYear int    `json:"academic_year" validate:"required,min=2000,max=2100"`
}
