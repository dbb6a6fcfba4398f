package models

import "time"

// Class represents a class section owned by a department.
type Class struct {
	ID           string    `db:"id" json:"id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Name         string    `db:"name" json:"name"`
	Section      *string   `db:"section" json:"section,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with its assigned teachers.
type ClassDetail struct {
	Class
	Teachers []UserSummary `json:"teachers"`
}

// ClassTeacher links a class to one of its teachers.
type ClassTeacher struct {
	ClassID string `db:"class_id" json:"class_id"`
	UserSummary
}
