package models

import "time"

// Period is a numbered time slot within a department's teaching day.
type Period struct {
	ID              string    `db:"id" json:"id"`
	DepartmentID    string    `db:"department_id" json:"department_id"`
	PeriodNumber    int       `db:"period_number" json:"period_number"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
