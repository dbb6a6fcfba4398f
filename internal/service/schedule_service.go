package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/events"
)

// Schedule events published after successful mutations.
const (
	EventScheduleCreated = "schedule.created"
	EventScheduleUpdated = "schedule.updated"
	EventScheduleDeleted = "schedule.deleted"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, departmentID, id string) (*models.Schedule, error)
	CreateGuarded(ctx context.Context, schedule *models.Schedule, detect func([]models.Schedule) []models.ScheduleConflict) ([]models.ScheduleConflict, error)
	UpdateGuarded(ctx context.Context, schedule *models.Schedule, detect func([]models.Schedule) []models.ScheduleConflict) ([]models.ScheduleConflict, error)
	Delete(ctx context.Context, departmentID, id string) (int64, error)
	MissingReferences(ctx context.Context, departmentID string, refs models.ScheduleReferences) ([]string, error)
}

type periodLookup interface {
	FindByID(ctx context.Context, departmentID, id string) (*models.Period, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// SchedulePayload carries a booking. Omitted or empty references are stored as NULL.
// On update, omitted fields keep their stored value and empty strings clear them.
type SchedulePayload struct {
	Day       *string `json:"day" validate:"omitempty,weekday"`
	PeriodID  *string `json:"period_id" validate:"omitempty,uuid"`
	StartTime *string `json:"start_time" validate:"omitempty,clock"`
	EndTime   *string `json:"end_time" validate:"omitempty,clock"`
	FacultyID *string `json:"faculty_id" validate:"omitempty,uuid"`
	ClassID   *string `json:"class_id" validate:"omitempty,uuid"`
	RoomID    *string `json:"room_id" validate:"omitempty,max=64"`
	SubjectID *string `json:"subject_id" validate:"omitempty,uuid"`
}

// ScheduleService books schedules without ever double-booking a faculty member or room.
type ScheduleService struct {
	repo      scheduleRepository
	periods   periodLookup
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, periods periodLookup, publisher eventPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ScheduleService{
		repo:      repo,
		periods:   periods,
		events:    publisher,
		metrics:   metrics,
		validator: defaultValidator(validate),
		logger:    logger,
	}
}

// List returns the department's schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, actor *models.Actor, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	filter.DepartmentID = actor.DepartmentID
	if filter.ClassID != "" && !validID(filter.ClassID) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid class_id")
	}
	if filter.FacultyID != "" && !validID(filter.FacultyID) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid faculty_id")
	}
	if filter.Day != "" {
		day, ok := NormalizeDay(filter.Day)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid day")
		}
		filter.Day = day
	}

	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single schedule.
func (s *ScheduleService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Schedule, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	sched, err := s.repo.FindByID(ctx, actor.DepartmentID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return sched, nil
}

// Create stores a new booking after a conflict check that runs atomically with the insert.
func (s *ScheduleService) Create(ctx context.Context, actor *models.Actor, req SchedulePayload) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	createdBy := actor.UserID
	schedule := &models.Schedule{
		DepartmentID: actor.DepartmentID,
		Day:          normalizeDayPtr(req.Day),
		PeriodID:     emptyToNil(req.PeriodID),
		FacultyID:    emptyToNil(req.FacultyID),
		ClassID:      emptyToNil(req.ClassID),
		RoomID:       emptyToNil(req.RoomID),
		SubjectID:    emptyToNil(req.SubjectID),
		CreatedBy:    &createdBy,
	}
	if err := s.ensureReferencesOwned(ctx, schedule); err != nil {
		return nil, err
	}
	if err := s.resolveTimes(ctx, schedule, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	start := time.Now()
	conflicts, err := s.repo.CreateGuarded(ctx, schedule, s.detector(schedule))
	if err := s.bookingOutcome("create", conflicts, err, time.Since(start)); err != nil {
		return nil, err
	}

	s.logger.Info("schedule created", zap.String("schedule_id", schedule.ID), zap.String("department_id", schedule.DepartmentID))
	s.publish(ctx, actor, EventScheduleCreated, schedule)
	return schedule, nil
}

// Update applies the payload over the stored booking and re-checks conflicts excluding itself.
func (s *ScheduleService) Update(ctx context.Context, actor *models.Actor, id string, req SchedulePayload) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	schedule.DepartmentID = actor.DepartmentID
	if req.Day != nil {
		schedule.Day = normalizeDayPtr(req.Day)
	}
	if req.PeriodID != nil {
		schedule.PeriodID = emptyToNil(req.PeriodID)
	}
	if req.FacultyID != nil {
		schedule.FacultyID = emptyToNil(req.FacultyID)
	}
	if req.ClassID != nil {
		schedule.ClassID = emptyToNil(req.ClassID)
	}
	if req.RoomID != nil {
		schedule.RoomID = emptyToNil(req.RoomID)
	}
	if req.SubjectID != nil {
		schedule.SubjectID = emptyToNil(req.SubjectID)
	}

	if err := s.ensureReferencesOwned(ctx, schedule); err != nil {
		return nil, err
	}

	startTime, endTime := req.StartTime, req.EndTime
	periodChanged := req.PeriodID != nil && schedule.PeriodID != nil
	if !periodChanged {
		if startTime == nil {
			startTime = &schedule.StartTime
		}
		if endTime == nil {
			endTime = &schedule.EndTime
		}
	}
	if err := s.resolveTimes(ctx, schedule, startTime, endTime); err != nil {
		return nil, err
	}

	start := time.Now()
	conflicts, err := s.repo.UpdateGuarded(ctx, schedule, s.detector(schedule))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	if err := s.bookingOutcome("update", conflicts, err, time.Since(start)); err != nil {
		return nil, err
	}

	s.publish(ctx, actor, EventScheduleUpdated, schedule)
	return schedule, nil
}

// Delete removes a booking. Deleting an unknown id succeeds.
func (s *ScheduleService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !validID(id) {
		return nil
	}
	affected, err := s.repo.Delete(ctx, actor.DepartmentID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	if affected > 0 {
		s.publish(ctx, actor, EventScheduleDeleted, map[string]string{"id": id})
	}
	return nil
}

// ensureReferencesOwned rejects bookings that point at a period, faculty member, class or
// subject of another department. Conflict detection only sees the actor's department.
func (s *ScheduleService) ensureReferencesOwned(ctx context.Context, schedule *models.Schedule) error {
	refs := models.ScheduleReferences{
		PeriodID:  schedule.PeriodID,
		FacultyID: schedule.FacultyID,
		ClassID:   schedule.ClassID,
		SubjectID: schedule.SubjectID,
	}
	if refs.Empty() {
		return nil
	}
	missing, err := s.repo.MissingReferences(ctx, schedule.DepartmentID, refs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify schedule references")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "unknown "+strings.Join(missing, ", ")+" in department")
	}
	return nil
}

// resolveTimes fills missing times from the period, then normalises and validates the window.
func (s *ScheduleService) resolveTimes(ctx context.Context, schedule *models.Schedule, startTime, endTime *string) error {
	start, end := nonEmpty(startTime), nonEmpty(endTime)
	if (start == "" || end == "") && schedule.PeriodID != nil {
		period, err := s.periods.FindByID(ctx, schedule.DepartmentID, *schedule.PeriodID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "period not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
		}
		if start == "" {
			start = period.StartTime
		}
		if end == "" {
			end = period.EndTime
		}
	}
	if start == "" || end == "" {
		return appErrors.Clone(appErrors.ErrValidation, "start_time and end_time are required when no period is given")
	}

	window, err := ParseInterval(start, end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end_time must be after start_time")
	}
	schedule.StartTime = FormatClock(window.Start)
	schedule.EndTime = FormatClock(window.End)
	return nil
}

func (s *ScheduleService) detector(schedule *models.Schedule) func([]models.Schedule) []models.ScheduleConflict {
	return func(existing []models.Schedule) []models.ScheduleConflict {
		if schedule.Day == nil {
			return nil
		}
		return FindConflicts(ConflictCandidate{
			DepartmentID: schedule.DepartmentID,
			Day:          *schedule.Day,
			StartTime:    schedule.StartTime,
			EndTime:      schedule.EndTime,
			FacultyID:    schedule.FacultyID,
			RoomID:       schedule.RoomID,
			ExcludeID:    schedule.ID,
		}, existing)
	}
}

func (s *ScheduleService) bookingOutcome(operation string, conflicts []models.ScheduleConflict, err error, elapsed time.Duration) error {
	switch {
	case errors.Is(err, models.ErrScheduleOverlap):
		s.metrics.RecordBooking(operation, OutcomeConflict, nil, elapsed)
		return appErrors.Wrap(err, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, appErrors.ErrScheduleConflict.Message)
	case err != nil:
		s.metrics.RecordBooking(operation, OutcomeError, nil, elapsed)
		s.logger.Error("schedule write failed", zap.String("operation", operation), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+operation+" schedule")
	case len(conflicts) > 0:
		s.metrics.RecordBooking(operation, OutcomeConflict, conflicts, elapsed)
		return conflictError(conflicts)
	default:
		s.metrics.RecordBooking(operation, OutcomeBooked, nil, elapsed)
		return nil
	}
}

func (s *ScheduleService) publish(ctx context.Context, actor *models.Actor, eventType string, payload interface{}) {
	err := s.events.Publish(ctx, events.Event{
		Type:         eventType,
		DepartmentID: actor.DepartmentID,
		ActorID:      actor.UserID,
		Payload:      payload,
	})
	if err != nil {
		s.logger.Warn("publish schedule event failed", zap.String("event", eventType), zap.Error(err))
	}
}

func conflictError(conflicts []models.ScheduleConflict) error {
	var faculty, room bool
	for _, c := range conflicts {
		switch c.Type {
		case models.ConflictFaculty:
			faculty = true
		case models.ConflictRoom:
			room = true
		}
	}
	message := "schedule conflicts with an existing booking"
	switch {
	case faculty && room:
		message = "faculty and room are already booked at this time"
	case faculty:
		message = "faculty is already booked at this time"
	case room:
		message = "room is already booked at this time"
	}
	details := &models.ScheduleConflictError{Message: message, Conflicts: conflicts}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrScheduleConflict, message), details)
}

func normalizeDayPtr(day *string) *string {
	if day == nil || *day == "" {
		return nil
	}
	normalized, ok := NormalizeDay(*day)
	if !ok {
		return nil
	}
	return &normalized
}
