package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const (
	memberA = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	memberB = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

type mockAssignmentRepo struct {
	members    map[string][]string
	known      map[string]bool
	counted    int
	replaceErr error
}

func (m *mockAssignmentRepo) ReplaceMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string, memberIDs []string) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if m.members == nil {
		m.members = make(map[string][]string)
	}
	m.members[string(relation)+":"+ownerID] = append([]string(nil), memberIDs...)
	return nil
}

func (m *mockAssignmentRepo) ListMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string) ([]string, error) {
	return m.members[string(relation)+":"+ownerID], nil
}

func (m *mockAssignmentRepo) CountMembersInDepartment(ctx context.Context, relation models.AssignmentRelation, departmentID string, memberIDs []string) (int, error) {
	m.counted++
	n := 0
	for _, id := range memberIDs {
		if m.known[id] {
			n++
		}
	}
	return n, nil
}

func TestNormalizeMembers(t *testing.T) {
	ids := NormalizeMembers([]models.MemberRef{{ID: memberB}, {ID: ""}, {ID: memberA}, {ID: " " + memberB + " "}})
	assert.Equal(t, []string{memberB, memberA}, ids)
	assert.Empty(t, NormalizeMembers(nil))
}

func TestAssignmentSynchronizerReplace(t *testing.T) {
	repo := &mockAssignmentRepo{known: map[string]bool{memberA: true, memberB: true}}
	sync := NewAssignmentSynchronizer(repo, nil)

	ids, err := sync.Replace(context.Background(), testActor(), models.RelationClassTeachers, "c1", []models.MemberRef{{ID: memberA}, {ID: memberB}, {ID: memberA}})
	require.NoError(t, err)
	assert.Equal(t, []string{memberA, memberB}, ids)

	members, err := sync.Members(context.Background(), models.RelationClassTeachers, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{memberA, memberB}, members)

	ids, err = sync.Replace(context.Background(), testActor(), models.RelationClassTeachers, "c1", []models.MemberRef{{ID: memberB}})
	require.NoError(t, err)
	assert.Equal(t, []string{memberB}, ids)
	assert.Equal(t, []string{memberB}, repo.members["class_teachers:c1"])
}

func TestAssignmentSynchronizerEmptyListClearsWithoutLookup(t *testing.T) {
	repo := &mockAssignmentRepo{members: map[string][]string{"faculty_subjects:f1": {memberA}}}
	sync := NewAssignmentSynchronizer(repo, nil)

	ids, err := sync.Replace(context.Background(), testActor(), models.RelationFacultySubjects, "f1", []models.MemberRef{})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, repo.members["faculty_subjects:f1"])

	ids, err = sync.Replace(context.Background(), testActor(), models.RelationFacultySubjects, "f1", []models.MemberRef{{ID: " "}})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, repo.members["faculty_subjects:f1"])
	assert.Zero(t, repo.counted)
}

func TestAssignmentSynchronizerValidateWritesNothing(t *testing.T) {
	repo := &mockAssignmentRepo{known: map[string]bool{memberA: true}}
	sync := NewAssignmentSynchronizer(repo, nil)

	ids, err := sync.Validate(context.Background(), testActor(), models.RelationClassTeachers, []models.MemberRef{{ID: memberA}, {ID: memberA}})
	require.NoError(t, err)
	assert.Equal(t, []string{memberA}, ids)
	assert.Equal(t, 1, repo.counted)
	assert.Nil(t, repo.members)

	_, err = sync.Validate(context.Background(), testActor(), models.RelationClassTeachers, []models.MemberRef{{ID: memberB}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, repo.members)
}

func TestAssignmentSynchronizerRejectsBadMembers(t *testing.T) {
	repo := &mockAssignmentRepo{known: map[string]bool{memberA: true}, members: map[string][]string{"class_teachers:c1": {memberA}}}
	sync := NewAssignmentSynchronizer(repo, nil)

	_, err := sync.Replace(context.Background(), testActor(), models.RelationClassTeachers, "c1", []models.MemberRef{{ID: "not-a-uuid"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = sync.Replace(context.Background(), testActor(), models.RelationClassTeachers, "c1", []models.MemberRef{{ID: memberA}, {ID: memberB}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, []string{memberA}, repo.members["class_teachers:c1"])

	_, err = sync.Replace(context.Background(), testActor(), models.AssignmentRelation("rooms"), "c1", nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAssignmentSynchronizerStorageFailure(t *testing.T) {
	repo := &mockAssignmentRepo{known: map[string]bool{memberA: true}, replaceErr: errors.New("tx aborted")}
	sync := NewAssignmentSynchronizer(repo, nil)

	_, err := sync.Replace(context.Background(), testActor(), models.RelationFacultySubjects, "f1", []models.MemberRef{{ID: memberA}})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
