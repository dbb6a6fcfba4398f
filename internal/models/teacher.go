package models

// TeacherDetail is a faculty user together with the subjects they may teach.
type TeacherDetail struct {
	User
	Subjects []SubjectSummary `json:"subjects"`
}

// FacultySubject links a faculty member to a subject they may teach.
type FacultySubject struct {
	FacultyID string `db:"faculty_id" json:"faculty_id"`
	SubjectSummary
}
