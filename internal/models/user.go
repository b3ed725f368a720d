package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application account stored in the users table.
// Student accounts are linked to exactly one student record.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Username           string     `db:"username" json:"username"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FullName           string     `db:"full_name" json:"full_name"`
	Role               UserRole   `db:"role" json:"role"`
	StudentID          *string    `db:"student_id" json:"student_id,omitempty"`
	MustChangePassword bool       `db:"must_change_password" json:"must_change_password"`
	Active             bool       `db:"active" json:"active"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
