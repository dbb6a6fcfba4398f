package service

import (
	"github.com/noah-isme/timetable-api/internal/models"
)

// ConflictCandidate is a proposed booking checked against existing schedules.
type ConflictCandidate struct {
	DepartmentID string
	Day          string
	StartTime    string
	EndTime      string
	FacultyID    *string
	RoomID       *string
	ExcludeID    string
}

// FindConflicts returns every existing schedule that shares a faculty member or a room with
// the candidate on the same day during an overlapping window. A schedule sharing both yields
// two entries. An empty result means the booking is safe. Candidates or schedules whose times
// cannot be parsed never conflict.
func FindConflicts(candidate ConflictCandidate, existing []models.Schedule) []models.ScheduleConflict {
	window, err := ParseInterval(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return nil
	}
	facultyID := nonEmpty(candidate.FacultyID)
	roomID := nonEmpty(candidate.RoomID)
	if facultyID == "" && roomID == "" {
		return nil
	}

	var conflicts []models.ScheduleConflict
	for _, sched := range existing {
		if candidate.ExcludeID != "" && sched.ID == candidate.ExcludeID {
			continue
		}
		if sched.Day == nil || *sched.Day != candidate.Day {
			continue
		}
		if candidate.DepartmentID != "" && sched.DepartmentID != candidate.DepartmentID {
			continue
		}
		other, err := ParseInterval(sched.StartTime, sched.EndTime)
		if err != nil || !Overlaps(window, other) {
			continue
		}
		if facultyID != "" && nonEmpty(sched.FacultyID) == facultyID {
			conflicts = append(conflicts, models.ScheduleConflict{Type: models.ConflictFaculty, Schedule: sched})
		}
		if roomID != "" && nonEmpty(sched.RoomID) == roomID {
			conflicts = append(conflicts, models.ScheduleConflict{Type: models.ConflictRoom, Schedule: sched})
		}
	}
	return conflicts
}

func nonEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
