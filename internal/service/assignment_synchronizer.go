package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type assignmentRepository interface {
	ReplaceMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string, memberIDs []string) error
	ListMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string) ([]string, error)
	CountMembersInDepartment(ctx context.Context, relation models.AssignmentRelation, departmentID string, memberIDs []string) (int, error)
}

var relationMembers = map[models.AssignmentRelation]string{
	models.RelationClassTeachers:   "teacher",
	models.RelationFacultySubjects: "subject",
}

// AssignmentSynchronizer keeps a junction table equal to the member list submitted with its owner.
type AssignmentSynchronizer struct {
	repo   assignmentRepository
	logger *zap.Logger
}

func NewAssignmentSynchronizer(repo assignmentRepository, logger *zap.Logger) *AssignmentSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentSynchronizer{repo: repo, logger: logger}
}

// NormalizeMembers extracts ids, drops empty ones and collapses duplicates keeping first-seen order.
func NormalizeMembers(members []models.MemberRef) []string {
	seen := make(map[string]struct{}, len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Validate normalises members and checks that every one is a uuid in the actor's department.
// Nothing is written.
func (s *AssignmentSynchronizer) Validate(ctx context.Context, actor *models.Actor, relation models.AssignmentRelation, members []models.MemberRef) ([]string, error) {
	noun, ok := relationMembers[relation]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment relation")
	}

	ids := NormalizeMembers(members)
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+noun+" id "+id)
		}
	}

	if len(ids) > 0 {
		count, err := s.repo.CountMembersInDepartment(ctx, relation, actor.DepartmentID, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify "+noun+"s")
		}
		if count != len(ids) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown "+noun+" in assignment")
		}
	}
	return ids, nil
}

// Replace makes the owner's members exactly the normalised set. Every member must belong to
// the actor's department. The change applies completely or not at all.
func (s *AssignmentSynchronizer) Replace(ctx context.Context, actor *models.Actor, relation models.AssignmentRelation, ownerID string, members []models.MemberRef) ([]string, error) {
	ids, err := s.Validate(ctx, actor, relation, members)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceMembers(ctx, relation, ownerID, ids); err != nil {
		s.logger.Error("replace assignments failed", zap.String("relation", string(relation)), zap.String("owner_id", ownerID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+relationMembers[relation]+" assignments")
	}
	return ids, nil
}

// Members lists the owner's current member ids.
func (s *AssignmentSynchronizer) Members(ctx context.Context, relation models.AssignmentRelation, ownerID string) ([]string, error) {
	if _, ok := relationMembers[relation]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment relation")
	}
	ids, err := s.repo.ListMembers(ctx, relation, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
