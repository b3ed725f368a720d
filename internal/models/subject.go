package models

import "time"

// Subject represents a teacher-owned academic subject.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectRequest is the payload for creating or renaming a subject.
type SubjectRequest struct {
	Name string `json:"name" validate:"required,min=3,max=100"`
}
