package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type periodRepository interface {
	List(ctx context.Context, departmentID string) ([]models.Period, error)
	FindByID(ctx context.Context, departmentID, id string) (*models.Period, error)
	ExistsByNumber(ctx context.Context, departmentID string, number int, excludeID string) (bool, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	Delete(ctx context.Context, departmentID, id string) (int64, error)
}

// PeriodRequest is the payload for creating or replacing a period.
type PeriodRequest struct {
	PeriodNumber int    `json:"period_number" validate:"required,min=1"`
	StartTime    string `json:"start_time" validate:"required,clock"`
	EndTime      string `json:"end_time" validate:"required,clock"`
}

// PeriodService manages the department's numbered time slots.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewPeriodService(repo periodRepository, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, validator: defaultValidator(validate), logger: logger}
}

// List returns periods ascending by number.
func (s *PeriodService) List(ctx context.Context, actor *models.Actor) ([]models.Period, error) {
	periods, err := s.repo.List(ctx, actor.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	if periods == nil {
		periods = []models.Period{}
	}
	return periods, nil
}

func (s *PeriodService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Period, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
	}
	period, err := s.repo.FindByID(ctx, actor.DepartmentID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// NextNumber suggests the number for the next period.
func (s *PeriodService) NextNumber(ctx context.Context, actor *models.Actor) (int, error) {
	periods, err := s.List(ctx, actor)
	if err != nil {
		return 0, err
	}
	return NextPeriodNumber(periods), nil
}

func (s *PeriodService) Create(ctx context.Context, actor *models.Actor, req PeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	if err := s.ensureNumberFree(ctx, actor.DepartmentID, req.PeriodNumber, ""); err != nil {
		return nil, err
	}

	period := &models.Period{DepartmentID: actor.DepartmentID}
	applyPeriodRequest(period, req)
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, periodWriteError(err, req.PeriodNumber, "failed to create period")
	}
	return period, nil
}

func (s *PeriodService) Update(ctx context.Context, actor *models.Actor, id string, req PeriodRequest) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	period, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNumberFree(ctx, actor.DepartmentID, req.PeriodNumber, id); err != nil {
		return nil, err
	}

	applyPeriodRequest(period, req)
	if err := s.repo.Update(ctx, period); err != nil {
		return nil, periodWriteError(err, req.PeriodNumber, "failed to update period")
	}
	return period, nil
}

func (s *PeriodService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "period not found")
	}
	affected, err := s.repo.Delete(ctx, actor.DepartmentID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "period not found")
	}
	return nil
}

func (s *PeriodService) ensureNumberFree(ctx context.Context, departmentID string, number int, excludeID string) error {
	taken, err := s.repo.ExistsByNumber(ctx, departmentID, number, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period number")
	}
	if taken {
		return duplicatePeriodNumber(number)
	}
	return nil
}

func duplicatePeriodNumber(number int) error {
	return appErrors.Clone(appErrors.ErrConflict, "period number "+strconv.Itoa(number)+" already exists")
}

// A concurrent write can pass ensureNumberFree and still lose on the unique constraint.
func periodWriteError(err error, number int, message string) error {
	if errors.Is(err, models.ErrDuplicate) {
		return duplicatePeriodNumber(number)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// Times are stored as HH:MM and the duration is always recomputed from them.
func applyPeriodRequest(period *models.Period, req PeriodRequest) {
	period.PeriodNumber = req.PeriodNumber
	period.StartTime = canonicalClock(req.StartTime)
	period.EndTime = canonicalClock(req.EndTime)
	period.DurationMinutes = DeriveDuration(period.StartTime, period.EndTime)
}

func canonicalClock(value string) string {
	minutes, err := ParseClock(value)
	if err != nil {
		return value
	}
	return FormatClock(minutes)
}
