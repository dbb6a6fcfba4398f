package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type daySchedules interface {
	ListByDay(ctx context.Context, departmentID, day string) ([]models.Schedule, error)
}

// CheckConflictRequest asks whether a proposed booking would collide with stored ones.
type CheckConflictRequest struct {
	FacultyID    *string `json:"faculty_id"`
	RoomID       *string `json:"room_id"`
	Day          string  `json:"day" validate:"required,weekday"`
	StartTime    string  `json:"start_time" validate:"required,clock"`
	EndTime      string  `json:"end_time" validate:"required,clock"`
	DepartmentID *string `json:"department_id"`
	ScheduleID   *string `json:"schedule_id"`
}

// CheckConflictResult lists the detected conflicts; empty means the booking is safe.
type CheckConflictResult struct {
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}

// ConflictService runs the conflict detector against the stored bookings of a day.
type ConflictService struct {
	repo      daySchedules
	validator *validator.Validate
	logger    *zap.Logger
}

func NewConflictService(repo daySchedules, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{repo: repo, validator: defaultValidator(validate), logger: logger}
}

// Check never writes. The department defaults to the actor's and may not name another one.
func (s *ConflictService) Check(ctx context.Context, actor *models.Actor, req CheckConflictRequest) (*CheckConflictResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	if _, err := ParseInterval(req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end_time must be after start_time")
	}

	departmentID := actor.DepartmentID
	if dept := nonEmpty(req.DepartmentID); dept != "" && dept != actor.DepartmentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "department outside of your scope")
	}

	day, _ := NormalizeDay(req.Day)
	existing, err := s.repo.ListByDay(ctx, departmentID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	conflicts := FindConflicts(ConflictCandidate{
		DepartmentID: departmentID,
		Day:          day,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		FacultyID:    emptyToNil(req.FacultyID),
		RoomID:       emptyToNil(req.RoomID),
		ExcludeID:    nonEmpty(req.ScheduleID),
	}, existing)
	if conflicts == nil {
		conflicts = []models.ScheduleConflict{}
	}
	return &CheckConflictResult{Conflicts: conflicts}, nil
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
