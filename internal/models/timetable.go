package models

// TimetableFilter selects whose week is rendered. Exactly one field is set.
type TimetableFilter struct {
	ClassID   string `form:"class_id"`
	FacultyID string `form:"faculty_id"`
	RoomID    string `form:"room_id"`
}

// ScheduleDetail is a schedule joined with display names for timetable views.
type ScheduleDetail struct {
	Schedule
	PeriodNumber *int    `db:"period_number" json:"period_number,omitempty"`
	SubjectCode  *string `db:"subject_code" json:"subject_code,omitempty"`
	SubjectName  *string `db:"subject_name" json:"subject_name,omitempty"`
	FacultyName  *string `db:"faculty_name" json:"faculty_name,omitempty"`
	ClassName    *string `db:"class_name" json:"class_name,omitempty"`
}

// TimetableRow holds one period and the bookings per day in that period.
type TimetableRow struct {
	Period Period                      `json:"period"`
	Cells  map[string][]ScheduleDetail `json:"cells"`
}

// Timetable is the periods by days grid.
type Timetable struct {
	Title    string           `json:"title"`
	Days     []string         `json:"days"`
	Rows     []TimetableRow   `json:"rows"`
	Unplaced []ScheduleDetail `json:"unplaced,omitempty"`
}
