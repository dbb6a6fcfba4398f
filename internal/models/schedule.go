package models

import (
	"errors"
	"time"
)

// Schedule books a faculty member, class, room and subject into a day and time window.
type Schedule struct {
	ID           string    `db:"id" json:"id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Day          *string   `db:"day" json:"day"`
	PeriodID     *string   `db:"period_id" json:"period_id"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	FacultyID    *string   `db:"faculty_id" json:"faculty_id"`
	ClassID      *string   `db:"class_id" json:"class_id"`
	RoomID       *string   `db:"room_id" json:"room_id"`
	SubjectID    *string   `db:"subject_id" json:"subject_id"`
	CreatedBy    *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	DepartmentID string
	Day          string
	ClassID      string
	FacultyID    string
	RoomID       string
	Page         int
	PageSize     int
}

// ConflictType names the shared resource behind a conflict.
type ConflictType string

const (
	ConflictFaculty ConflictType = "faculty"
	ConflictRoom    ConflictType = "room"
)

// ScheduleConflict describes an existing schedule that collides with a candidate.
type ScheduleConflict struct {
	Type     ConflictType `json:"type"`
	Schedule Schedule     `json:"schedule"`
}

// ScheduleConflictError is returned when a booking collides with existing ones.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ScheduleReferences are the department-owned rows a booking may point at.
type ScheduleReferences struct {
	PeriodID  *string
	FacultyID *string
	ClassID   *string
	SubjectID *string
}

// Empty reports whether no reference is set.
func (r ScheduleReferences) Empty() bool {
	return r.PeriodID == nil && r.FacultyID == nil && r.ClassID == nil && r.SubjectID == nil
}

// ErrScheduleOverlap is reported by storage when the exclusion constraint rejects a write.
var ErrScheduleOverlap = errors.New("schedule overlaps an existing booking")
