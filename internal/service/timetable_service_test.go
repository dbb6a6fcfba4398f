package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const (
	timetableClass   = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	timetableFaculty = "ffffffff-ffff-ffff-ffff-ffffffffffff"
)

type mockDetailLister struct {
	details    []models.ScheduleDetail
	lastFilter models.TimetableFilter
}

func (m *mockDetailLister) ListDetailed(ctx context.Context, departmentID string, filter models.TimetableFilter) ([]models.ScheduleDetail, error) {
	m.lastFilter = filter
	return m.details, nil
}

type staticPeriods []models.Period

func (p staticPeriods) List(ctx context.Context, departmentID string) ([]models.Period, error) {
	return p, nil
}

func detail(id string, day, periodID *string, start, end string) models.ScheduleDetail {
	return models.ScheduleDetail{
		Schedule:    models.Schedule{ID: id, DepartmentID: "d1", Day: day, PeriodID: periodID, StartTime: start, EndTime: end, RoomID: ptr("R-1")},
		SubjectCode: ptr("CS101"),
		ClassName:   ptr("BSCS 1"),
		FacultyName: ptr("Ada Lovelace"),
	}
}

func newTimetableFixture() (*TimetableService, *mockDetailLister) {
	lister := &mockDetailLister{details: []models.ScheduleDetail{
		detail("s1", ptr("MONDAY"), ptr("p1"), "08:00", "09:00"),
		detail("s2", ptr("SUNDAY"), ptr("p2"), "09:00", "10:00"),
		detail("s3", ptr("TUESDAY"), nil, "13:00", "14:00"),
		detail("s4", ptr("WEDNESDAY"), ptr("p2"), "09:00", "10:00"),
	}}
	periods := staticPeriods{
		{ID: "p1", PeriodNumber: 1, StartTime: "08:00", EndTime: "09:00"},
		{ID: "p2", PeriodNumber: 2, StartTime: "09:00", EndTime: "10:00"},
	}
	svc := NewTimetableService(lister, periods, TimetableConfig{Days: []string{"monday", "tuesday", "wednesday", "bogus"}}, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return svc, lister
}

func TestTimetableServiceGrid(t *testing.T) {
	svc, lister := newTimetableFixture()

	grid, err := svc.Grid(context.Background(), testActor(), models.TimetableFilter{ClassID: timetableClass})
	require.NoError(t, err)
	assert.Equal(t, timetableClass, lister.lastFilter.ClassID)
	assert.Equal(t, "Class BSCS 1", grid.Title)
	assert.Equal(t, []string{"MONDAY", "TUESDAY", "WEDNESDAY"}, grid.Days)

	require.Len(t, grid.Rows, 2)
	require.Len(t, grid.Rows[0].Cells["MONDAY"], 1)
	assert.Equal(t, "s1", grid.Rows[0].Cells["MONDAY"][0].ID)
	assert.Empty(t, grid.Rows[0].Cells["TUESDAY"])
	require.Len(t, grid.Rows[1].Cells["WEDNESDAY"], 1)

	require.Len(t, grid.Unplaced, 2)
	assert.Equal(t, "s2", grid.Unplaced[0].ID)
	assert.Equal(t, "s3", grid.Unplaced[1].ID)
}

func TestTimetableServiceRequiresSingleFilter(t *testing.T) {
	svc, _ := newTimetableFixture()

	_, err := svc.Grid(context.Background(), testActor(), models.TimetableFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Grid(context.Background(), testActor(), models.TimetableFilter{ClassID: timetableClass, RoomID: "R-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Grid(context.Background(), testActor(), models.TimetableFilter{ClassID: "c1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Grid(context.Background(), testActor(), models.TimetableFilter{FacultyID: "f1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTimetableServiceExportCSV(t *testing.T) {
	svc, _ := newTimetableFixture()

	body, contentType, filename, err := svc.Export(context.Background(), testActor(), models.TimetableFilter{RoomID: "R-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", contentType)
	assert.Equal(t, "timetable-room-R-1.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Period,Time,MONDAY,TUESDAY,WEDNESDAY", lines[0])
	assert.Contains(t, lines[1], "CS101 BSCS 1 Ada Lovelace @R-1")
}

func TestTimetableServiceExportICSAnchorsCurrentWeek(t *testing.T) {
	svc, _ := newTimetableFixture()

	body, contentType, filename, err := svc.Export(context.Background(), testActor(), models.TimetableFilter{FacultyID: timetableFaculty}, "ICS")
	require.NoError(t, err)
	assert.Equal(t, "text/calendar; charset=utf-8", contentType)
	assert.Equal(t, "timetable-teacher-"+timetableFaculty+".ics", filename)

	text := string(body)
	assert.Contains(t, text, "20261012T080000Z")
	assert.Contains(t, text, "20261014T090000Z")
	assert.Contains(t, text, "FREQ=WEEKLY;BYDAY=MO")
	assert.Contains(t, text, "FREQ=WEEKLY;BYDAY=WE")
	assert.NotContains(t, text, "s2@timetable")
}

func TestTimetableServiceExportBinaryFormats(t *testing.T) {
	svc, _ := newTimetableFixture()

	pdf, contentType, _, err := svc.Export(context.Background(), testActor(), models.TimetableFilter{ClassID: timetableClass}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	xlsx, _, filename, err := svc.Export(context.Background(), testActor(), models.TimetableFilter{ClassID: timetableClass}, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "timetable-class-"+timetableClass+".xlsx", filename)
	assert.True(t, strings.HasPrefix(string(xlsx), "PK"))

	_, _, _, err = svc.Export(context.Background(), testActor(), models.TimetableFilter{ClassID: timetableClass}, "docx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
