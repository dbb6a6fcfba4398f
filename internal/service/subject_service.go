package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, departmentID string) ([]models.Subject, error)
	FindByID(ctx context.Context, departmentID, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, departmentID, code, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, departmentID, id string) (int64, error)
}

// SubjectRequest is the payload for creating or replacing a subject.
type SubjectRequest struct {
	Code  string `json:"code" validate:"required,max=32"`
	Name  string `json:"name" validate:"required,max=255"`
	Units int    `json:"units" validate:"min=0,max=30"`
}

// SubjectService manages subjects with codes unique per department.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: defaultValidator(validate), logger: logger}
}

// List returns subjects ordered by code.
func (s *SubjectService) List(ctx context.Context, actor *models.Actor) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, actor.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

func (s *SubjectService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Subject, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	subject, err := s.repo.FindByID(ctx, actor.DepartmentID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func (s *SubjectService) Create(ctx context.Context, actor *models.Actor, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	code := strings.TrimSpace(req.Code)
	if err := s.ensureCodeFree(ctx, actor.DepartmentID, code, ""); err != nil {
		return nil, err
	}

	subject := &models.Subject{DepartmentID: actor.DepartmentID, Code: code, Name: strings.TrimSpace(req.Name), Units: req.Units}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, subjectWriteError(err, "failed to create subject")
	}
	return subject, nil
}

func (s *SubjectService) Update(ctx context.Context, actor *models.Actor, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Code)
	if err := s.ensureCodeFree(ctx, actor.DepartmentID, code, id); err != nil {
		return nil, err
	}

	subject.Code = code
	subject.Name = strings.TrimSpace(req.Name)
	subject.Units = req.Units
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, subjectWriteError(err, "failed to update subject")
	}
	return subject, nil
}

func (s *SubjectService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	affected, err := s.repo.Delete(ctx, actor.DepartmentID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return nil
}

func (s *SubjectService) ensureCodeFree(ctx context.Context, departmentID, code, excludeID string) error {
	taken, err := s.repo.ExistsByCode(ctx, departmentID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return nil
}

func subjectWriteError(err error, message string) error {
	if errors.Is(err, models.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
