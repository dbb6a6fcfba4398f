package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

type scheduleDetailLister interface {
	ListDetailed(ctx context.Context, departmentID string, filter models.TimetableFilter) ([]models.ScheduleDetail, error)
}

type periodLister interface {
	List(ctx context.Context, departmentID string) ([]models.Period, error)
}

type tabularRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(name string, events []export.CalendarEvent) ([]byte, error)
}

// TimetableConfig controls which days the grid shows and where ICS events are anchored.
type TimetableConfig struct {
	Days     []string
	Location *time.Location
}

// TimetableService renders the week of a class, teacher or room.
type TimetableService struct {
	schedules scheduleDetailLister
	periods   periodLister
	cfg       TimetableConfig
	csv       tabularRenderer
	pdf       tabularRenderer
	xlsx      tabularRenderer
	ics       calendarRenderer
	now       func() time.Time
	logger    *zap.Logger
}

func NewTimetableService(schedules scheduleDetailLister, periods periodLister, cfg TimetableConfig, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	days := make([]string, 0, len(cfg.Days))
	for _, d := range cfg.Days {
		if day, ok := NormalizeDay(d); ok {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		days = append(days, Weekdays[:6]...)
	}
	cfg.Days = days
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &TimetableService{
		schedules: schedules,
		periods:   periods,
		cfg:       cfg,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		ics:       export.NewICSExporter(),
		now:       time.Now,
		logger:    logger,
	}
}

// Grid builds the periods by days view. Bookings without a period, or on a day outside the
// configured week, are returned in Unplaced.
func (s *TimetableService) Grid(ctx context.Context, actor *models.Actor, filter models.TimetableFilter) (*models.Timetable, error) {
	if err := validateTimetableFilter(filter); err != nil {
		return nil, err
	}

	periods, err := s.periods.List(ctx, actor.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	details, err := s.schedules.ListDetailed(ctx, actor.DepartmentID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	grid := &models.Timetable{
		Title:    timetableTitle(filter, details),
		Days:     append([]string(nil), s.cfg.Days...),
		Rows:     make([]models.TimetableRow, len(periods)),
		Unplaced: []models.ScheduleDetail{},
	}
	rowByPeriod := make(map[string]int, len(periods))
	for i, p := range periods {
		cells := make(map[string][]models.ScheduleDetail, len(grid.Days))
		for _, day := range grid.Days {
			cells[day] = []models.ScheduleDetail{}
		}
		grid.Rows[i] = models.TimetableRow{Period: p, Cells: cells}
		rowByPeriod[p.ID] = i
	}

	for _, d := range details {
		idx, placed := -1, false
		if d.PeriodID != nil {
			idx, placed = rowByPeriod[*d.PeriodID]
		}
		if placed && d.Day != nil {
			if cell, ok := grid.Rows[idx].Cells[*d.Day]; ok {
				grid.Rows[idx].Cells[*d.Day] = append(cell, d)
				continue
			}
		}
		grid.Unplaced = append(grid.Unplaced, d)
	}

	return grid, nil
}

// Export renders the grid in the requested format and returns the body, content type and
// a suggested file name.
func (s *TimetableService) Export(ctx context.Context, actor *models.Actor, filter models.TimetableFilter, rawFormat string) ([]byte, string, string, error) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	grid, err := s.Grid(ctx, actor, filter)
	if err != nil {
		return nil, "", "", err
	}

	var body []byte
	switch format {
	case export.FormatICS:
		body, err = s.ics.Render(grid.Title, s.calendarEvents(grid))
	case export.FormatPDF:
		body, err = s.pdf.Render(gridDataset(grid))
	case export.FormatXLSX:
		body, err = s.xlsx.Render(gridDataset(grid))
	default:
		body, err = s.csv.Render(gridDataset(grid))
	}
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Debug("timetable exported",
		zap.String("department_id", actor.DepartmentID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(body)),
	)
	return body, format.ContentType(), exportFilename(filter, format), nil
}

// calendarEvents anchors each placed booking to the current week in the configured zone.
func (s *TimetableService) calendarEvents(grid *models.Timetable) []export.CalendarEvent {
	now := s.now().In(s.cfg.Location)
	offset := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, s.cfg.Location)

	var events []export.CalendarEvent
	for _, row := range grid.Rows {
		for _, day := range grid.Days {
			for _, d := range row.Cells[day] {
				start, errStart := ParseClock(d.StartTime)
				end, errEnd := ParseClock(d.EndTime)
				if errStart != nil || errEnd != nil || end <= start {
					continue
				}
				date := monday.AddDate(0, 0, weekdayIndex(day))
				events = append(events, export.CalendarEvent{
					UID:         d.ID + "@timetable",
					Summary:     cellLabel(d),
					Location:    deref(d.RoomID),
					Description: fmt.Sprintf("Period %d", row.Period.PeriodNumber),
					Start:       date.Add(time.Duration(start) * time.Minute),
					End:         date.Add(time.Duration(end) * time.Minute),
				})
			}
		}
	}
	return events
}

func validateTimetableFilter(filter models.TimetableFilter) error {
	set := 0
	for _, v := range []string{filter.ClassID, filter.FacultyID, filter.RoomID} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "exactly one of class_id, faculty_id or room_id is required")
	}
	if filter.ClassID != "" && !validID(filter.ClassID) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid class_id")
	}
	if filter.FacultyID != "" && !validID(filter.FacultyID) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid faculty_id")
	}
	return nil
}

func timetableTitle(filter models.TimetableFilter, details []models.ScheduleDetail) string {
	switch {
	case filter.ClassID != "":
		for _, d := range details {
			if d.ClassName != nil {
				return "Class " + *d.ClassName
			}
		}
		return "Class " + filter.ClassID
	case filter.FacultyID != "":
		for _, d := range details {
			if d.FacultyName != nil {
				return "Teacher " + *d.FacultyName
			}
		}
		return "Teacher " + filter.FacultyID
	default:
		return "Room " + filter.RoomID
	}
}

func gridDataset(grid *models.Timetable) export.Dataset {
	headers := append([]string{"Period", "Time"}, grid.Days...)
	rows := make([]map[string]string, 0, len(grid.Rows))
	for _, r := range grid.Rows {
		row := map[string]string{
			"Period": fmt.Sprintf("%d", r.Period.PeriodNumber),
			"Time":   r.Period.StartTime + "-" + r.Period.EndTime,
		}
		for _, day := range grid.Days {
			labels := make([]string, 0, len(r.Cells[day]))
			for _, d := range r.Cells[day] {
				labels = append(labels, cellLabel(d))
			}
			row[day] = strings.Join(labels, "; ")
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: grid.Title, Headers: headers, Rows: rows}
}

func cellLabel(d models.ScheduleDetail) string {
	parts := make([]string, 0, 4)
	if d.SubjectCode != nil {
		parts = append(parts, *d.SubjectCode)
	} else if d.SubjectName != nil {
		parts = append(parts, *d.SubjectName)
	}
	if d.ClassName != nil {
		parts = append(parts, *d.ClassName)
	}
	if d.FacultyName != nil {
		parts = append(parts, *d.FacultyName)
	}
	if d.RoomID != nil && *d.RoomID != "" {
		parts = append(parts, "@"+*d.RoomID)
	}
	if len(parts) == 0 {
		return "Booked"
	}
	return strings.Join(parts, " ")
}

func exportFilename(filter models.TimetableFilter, format export.Format) string {
	subject, id := "room", filter.RoomID
	switch {
	case filter.ClassID != "":
		subject, id = "class", filter.ClassID
	case filter.FacultyID != "":
		subject, id = "teacher", filter.FacultyID
	}
	return fmt.Sprintf("timetable-%s-%s.%s", subject, sanitizeFilename(id), format)
}

func sanitizeFilename(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func weekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return 0
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
