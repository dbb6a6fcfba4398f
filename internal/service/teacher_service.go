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

type teacherRepository interface {
	ListFaculty(ctx context.Context, departmentID string) ([]models.User, error)
	FindFaculty(ctx context.Context, departmentID, id string) (*models.User, error)
	ListSubjects(ctx context.Context, facultyIDs []string) ([]models.FacultySubject, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	CreateFaculty(ctx context.Context, user *models.User) error
	UpdateFaculty(ctx context.Context, user *models.User) error
	DeleteFaculty(ctx context.Context, departmentID, id string) (int64, error)
}

type scopeInvalidator interface {
	Forget(ctx context.Context, userIDs ...string)
}

type nopScopeInvalidator struct{}

func (nopScopeInvalidator) Forget(context.Context, ...string) {}

// TeacherRequest is the payload for creating or replacing a faculty member. A nil Subjects
// list leaves the current assignments untouched; an empty list removes them all.
type TeacherRequest struct {
	FullName string             `json:"full_name" validate:"required,max=255"`
	Email    string             `json:"email" validate:"required,email"`
	Bio      *string            `json:"bio" validate:"omitempty,max=2000"`
	Subjects []models.MemberRef `json:"subjects"`
}

// TeacherService manages the department's faculty and the subjects they may teach.
type TeacherService struct {
	repo      teacherRepository
	sync      memberSynchronizer
	scope     scopeInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

func NewTeacherService(repo teacherRepository, sync memberSynchronizer, scope scopeInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = nopScopeInvalidator{}
	}
	return &TeacherService{repo: repo, sync: sync, scope: scope, validator: defaultValidator(validate), logger: logger}
}

// List returns faculty ordered by full name, each with their subjects.
func (s *TeacherService) List(ctx context.Context, actor *models.Actor) ([]models.TeacherDetail, error) {
	users, err := s.repo.ListFaculty(ctx, actor.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return s.withSubjects(ctx, users)
}

func (s *TeacherService) Get(ctx context.Context, actor *models.Actor, id string) (*models.TeacherDetail, error) {
	user, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	details, err := s.withSubjects(ctx, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *TeacherService) Create(ctx context.Context, actor *models.Actor, req TeacherRequest) (*models.TeacherDetail, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	email := strings.ToLower(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	if err := s.validateSubjects(ctx, actor, req.Subjects); err != nil {
		return nil, err
	}

	dept := actor.DepartmentID
	user := &models.User{DepartmentID: &dept, FullName: strings.TrimSpace(req.FullName), Email: email, Bio: emptyToNil(req.Bio)}
	if err := s.repo.CreateFaculty(ctx, user); err != nil {
		return nil, teacherWriteError(err, "failed to create teacher")
	}
	if req.Subjects != nil {
		if _, err := s.sync.Replace(ctx, actor, models.RelationFacultySubjects, user.ID, req.Subjects); err != nil {
			s.discard(ctx, actor, user.ID)
			return nil, err
		}
	}
	s.logger.Info("teacher created", zap.String("teacher_id", user.ID), zap.String("department_id", dept))
	return s.Get(ctx, actor, user.ID)
}

func (s *TeacherService) Update(ctx context.Context, actor *models.Actor, id string, req TeacherRequest) (*models.TeacherDetail, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	user, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(req.Email)
	if err := s.ensureEmailFree(ctx, email, id); err != nil {
		return nil, err
	}
	if err := s.validateSubjects(ctx, actor, req.Subjects); err != nil {
		return nil, err
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = email
	user.Bio = emptyToNil(req.Bio)
	if err := s.repo.UpdateFaculty(ctx, user); err != nil {
		return nil, teacherWriteError(err, "failed to update teacher")
	}
	if req.Subjects != nil {
		if _, err := s.sync.Replace(ctx, actor, models.RelationFacultySubjects, id, req.Subjects); err != nil {
			return nil, err
		}
	}
	s.scope.Forget(ctx, id)
	return s.Get(ctx, actor, id)
}

// ReplaceSubjects sets the teacher's subjects to exactly the given members.
func (s *TeacherService) ReplaceSubjects(ctx context.Context, actor *models.Actor, id string, members []models.MemberRef) (*models.TeacherDetail, error) {
	if _, err := s.find(ctx, actor, id); err != nil {
		return nil, err
	}
	if _, err := s.sync.Replace(ctx, actor, models.RelationFacultySubjects, id, members); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes the teacher with their subject and class links. Their schedules remain
// with no faculty assigned.
func (s *TeacherService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	affected, err := s.repo.DeleteFaculty(ctx, actor.DepartmentID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	s.scope.Forget(ctx, id)
	s.logger.Info("teacher deleted", zap.String("teacher_id", id), zap.String("department_id", actor.DepartmentID))
	return nil
}

func (s *TeacherService) find(ctx context.Context, actor *models.Actor, id string) (*models.User, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	user, err := s.repo.FindFaculty(ctx, actor.DepartmentID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return user, nil
}

func (s *TeacherService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	taken, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}
	return nil
}

func (s *TeacherService) validateSubjects(ctx context.Context, actor *models.Actor, subjects []models.MemberRef) error {
	if subjects == nil {
		return nil
	}
	_, err := s.sync.Validate(ctx, actor, models.RelationFacultySubjects, subjects)
	return err
}

// discard removes a teacher whose subject links could not be written, freeing the email.
func (s *TeacherService) discard(ctx context.Context, actor *models.Actor, id string) {
	if _, err := s.repo.DeleteFaculty(ctx, actor.DepartmentID, id); err != nil {
		s.logger.Error("discard teacher after failed assignment", zap.String("teacher_id", id), zap.Error(err))
	}
}

func teacherWriteError(err error, message string) error {
	if errors.Is(err, models.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *TeacherService) withSubjects(ctx context.Context, users []models.User) ([]models.TeacherDetail, error) {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	links, err := s.repo.ListSubjects(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher subjects")
	}

	byFaculty := make(map[string][]models.SubjectSummary, len(users))
	for _, link := range links {
		byFaculty[link.FacultyID] = append(byFaculty[link.FacultyID], link.SubjectSummary)
	}

	details := make([]models.TeacherDetail, len(users))
	for i, u := range users {
		subjects := byFaculty[u.ID]
		if subjects == nil {
			subjects = []models.SubjectSummary{}
		}
		details[i] = models.TeacherDetail{User: u, Subjects: subjects}
	}
	return details, nil
}
