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

type classRepository interface {
	List(ctx context.Context, departmentID string) ([]models.Class, error)
	FindByID(ctx context.Context, departmentID, id string) (*models.Class, error)
	ListTeachers(ctx context.Context, classIDs []string) ([]models.ClassTeacher, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, departmentID, id string) (int64, error)
}

type memberSynchronizer interface {
	Validate(ctx context.Context, actor *models.Actor, relation models.AssignmentRelation, members []models.MemberRef) ([]string, error)
	Replace(ctx context.Context, actor *models.Actor, relation models.AssignmentRelation, ownerID string, members []models.MemberRef) ([]string, error)
}

// ClassRequest is the payload for creating or replacing a class. A nil Teachers list leaves
// the current assignments untouched; an empty list removes them all.
type ClassRequest struct {
	Name     string             `json:"name" validate:"required,max=255"`
	Section  *string            `json:"section" validate:"omitempty,max=64"`
	Teachers []models.MemberRef `json:"teachers"`
}

// ClassService manages classes and their teacher assignments.
type ClassService struct {
	repo      classRepository
	sync      memberSynchronizer
	validator *validator.Validate
	logger    *zap.Logger
}

func NewClassService(repo classRepository, sync memberSynchronizer, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, sync: sync, validator: defaultValidator(validate), logger: logger}
}

// List returns classes ordered by name, each with its teachers.
func (s *ClassService) List(ctx context.Context, actor *models.Actor) ([]models.ClassDetail, error) {
	classes, err := s.repo.List(ctx, actor.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return s.withTeachers(ctx, classes)
}

func (s *ClassService) Get(ctx context.Context, actor *models.Actor, id string) (*models.ClassDetail, error) {
	class, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	details, err := s.withTeachers(ctx, []models.Class{*class})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *ClassService) Create(ctx context.Context, actor *models.Actor, req ClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if err := s.validateTeachers(ctx, actor, req.Teachers); err != nil {
		return nil, err
	}

	class := &models.Class{DepartmentID: actor.DepartmentID, Name: strings.TrimSpace(req.Name), Section: emptyToNil(req.Section)}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	if req.Teachers != nil {
		if _, err := s.sync.Replace(ctx, actor, models.RelationClassTeachers, class.ID, req.Teachers); err != nil {
			s.discard(ctx, actor, class.ID)
			return nil, err
		}
	}
	return s.Get(ctx, actor, class.ID)
}

func (s *ClassService) Update(ctx context.Context, actor *models.Actor, id string, req ClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateTeachers(ctx, actor, req.Teachers); err != nil {
		return nil, err
	}

	class.Name = strings.TrimSpace(req.Name)
	class.Section = emptyToNil(req.Section)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if req.Teachers != nil {
		if _, err := s.sync.Replace(ctx, actor, models.RelationClassTeachers, class.ID, req.Teachers); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, actor, class.ID)
}

// ReplaceTeachers sets the class's teachers to exactly the given members.
func (s *ClassService) ReplaceTeachers(ctx context.Context, actor *models.Actor, id string, members []models.MemberRef) (*models.ClassDetail, error) {
	if _, err := s.find(ctx, actor, id); err != nil {
		return nil, err
	}
	if _, err := s.sync.Replace(ctx, actor, models.RelationClassTeachers, id, members); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes the class and its teacher links.
func (s *ClassService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	affected, err := s.repo.Delete(ctx, actor.DepartmentID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return nil
}

func (s *ClassService) find(ctx context.Context, actor *models.Actor, id string) (*models.Class, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	class, err := s.repo.FindByID(ctx, actor.DepartmentID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// validateTeachers checks a submitted teacher list before anything is written. nil means
// the list was omitted.
func (s *ClassService) validateTeachers(ctx context.Context, actor *models.Actor, teachers []models.MemberRef) error {
	if teachers == nil {
		return nil
	}
	_, err := s.sync.Validate(ctx, actor, models.RelationClassTeachers, teachers)
	return err
}

// discard removes a class whose teacher links could not be written.
func (s *ClassService) discard(ctx context.Context, actor *models.Actor, id string) {
	if _, err := s.repo.Delete(ctx, actor.DepartmentID, id); err != nil {
		s.logger.Error("discard class after failed assignment", zap.String("class_id", id), zap.Error(err))
	}
}

func (s *ClassService) withTeachers(ctx context.Context, classes []models.Class) ([]models.ClassDetail, error) {
	ids := make([]string, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	links, err := s.repo.ListTeachers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class teachers")
	}

	byClass := make(map[string][]models.UserSummary, len(classes))
	for _, link := range links {
		byClass[link.ClassID] = append(byClass[link.ClassID], link.UserSummary)
	}

	details := make([]models.ClassDetail, len(classes))
	for i, c := range classes {
		teachers := byClass[c.ID]
		if teachers == nil {
			teachers = []models.UserSummary{}
		}
		details[i] = models.ClassDetail{Class: c, Teachers: teachers}
	}
	return details, nil
}
