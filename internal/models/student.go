package models

import "time"

// Student represents a learner enrolled in a class.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	ClassName string    `db:"class_name" json:"class_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter defines listing filters for students.
type StudentFilter struct {
	OwnerID string
	ClassID string
	Search  string
}

// CreateStudentRequest is the payload for enrolling a student.
type CreateStudentRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=3,max=200"`
}

// UpdateStudentRequest is the payload for renaming a student.
type UpdateStudentRequest struct {
	Name string `json:"name" validate:"required,min=3,max=200"`
}
