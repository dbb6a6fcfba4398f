package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func ptr(s string) *string { return &s }

func booking(id, day, start, end string, faculty, room *string) models.Schedule {
	return models.Schedule{ID: id, DepartmentID: "d1", Day: ptr(day), StartTime: start, EndTime: end, FacultyID: faculty, RoomID: room}
}

func TestFindConflictsFacultyOverlap(t *testing.T) {
	existing := []models.Schedule{booking("s1", "MONDAY", "08:00", "09:00", ptr("f1"), ptr("R-1"))}

	conflicts := FindConflicts(ConflictCandidate{DepartmentID: "d1", Day: "MONDAY", StartTime: "08:30", EndTime: "09:30", FacultyID: ptr("f1"), RoomID: ptr("R-2")}, existing)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictFaculty, conflicts[0].Type)
	assert.Equal(t, "s1", conflicts[0].Schedule.ID)
}

func TestFindConflictsBothResources(t *testing.T) {
	existing := []models.Schedule{booking("s1", "MONDAY", "08:00", "09:00", ptr("f1"), ptr("R-1"))}

	conflicts := FindConflicts(ConflictCandidate{DepartmentID: "d1", Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1"), RoomID: ptr("R-1")}, existing)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictFaculty, conflicts[0].Type)
	assert.Equal(t, models.ConflictRoom, conflicts[1].Type)
}

func TestFindConflictsTouchingIsSafe(t *testing.T) {
	existing := []models.Schedule{booking("s1", "MONDAY", "08:00", "09:00", ptr("f1"), ptr("R-1"))}

	assert.Empty(t, FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "09:00", EndTime: "10:00", FacultyID: ptr("f1"), RoomID: ptr("R-1")}, existing))
	assert.Empty(t, FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "07:00", EndTime: "08:00", FacultyID: ptr("f1")}, existing))
}

func TestFindConflictsIgnoresOtherDaysExcludedAndNullResources(t *testing.T) {
	existing := []models.Schedule{
		booking("s1", "TUESDAY", "08:00", "09:00", ptr("f1"), nil),
		booking("self", "MONDAY", "08:00", "09:00", ptr("f1"), nil),
		booking("s3", "MONDAY", "08:00", "09:00", nil, nil),
		{ID: "s4", DepartmentID: "d1", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1")},
	}

	conflicts := FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1"), ExcludeID: "self"}, existing)
	assert.Empty(t, conflicts)
}

func TestFindConflictsWithoutResourcesOrBadWindow(t *testing.T) {
	existing := []models.Schedule{booking("s1", "MONDAY", "08:00", "09:00", ptr("f1"), ptr("R-1"))}

	assert.Empty(t, FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "08:00", EndTime: "09:00"}, existing))
	assert.Empty(t, FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "09:00", EndTime: "08:00", FacultyID: ptr("f1")}, existing))
}

func TestFindConflictsScopesByDepartment(t *testing.T) {
	other := booking("s9", "MONDAY", "08:00", "09:00", ptr("f1"), nil)
	other.DepartmentID = "d2"

	assert.Empty(t, FindConflicts(ConflictCandidate{DepartmentID: "d1", Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1")}, []models.Schedule{other}))
	assert.Len(t, FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1")}, []models.Schedule{other}), 1)
}

func TestFindConflictsDoesNotMutateInput(t *testing.T) {
	existing := []models.Schedule{booking("s1", "MONDAY", "08:00", "09:00", ptr("f1"), nil)}
	snapshot := existing[0]

	FindConflicts(ConflictCandidate{Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", FacultyID: ptr("f1")}, existing)
	assert.Equal(t, snapshot, existing[0])
}
