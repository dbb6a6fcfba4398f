package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

var userRowColumns = []string{"id", "department_id", "full_name", "email", "bio", "role", "created_at", "updated_at"}

func TestUserRepositoryFindByIDReadsNullBio(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM users WHERE id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "d1", "Ada Lovelace", "ada@example.edu", nil, "dean", now, now))

	user, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDean, user.Role)
	require.NotNil(t, user.DepartmentID)
	assert.Equal(t, "d1", *user.DepartmentID)
	assert.Nil(t, user.Bio)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindFacultyNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id = \\$1 AND department_id = \\$2 AND role = 'faculty'").
		WithArgs("u9", "d1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindFaculty(context.Background(), "d1", "u9")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListSubjectsSkipsEmptyIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	links, err := repo.ListSubjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("ada@example.edu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2")).
		WithArgs("ada@example.edu", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.ExistsByEmail(context.Background(), "ada@example.edu", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "ada@example.edu", "u1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateFacultyForcesRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	dept := "d1"
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "d1", "Grace Hopper", "grace@example.edu", nil, "faculty", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{DepartmentID: &dept, FullName: "Grace Hopper", Email: "grace@example.edu", Role: models.RoleAdmin}
	require.NoError(t, repo.CreateFaculty(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteFacultyRemovesLinks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM faculty_subjects").WithArgs("u1", "d1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM class_teachers").WithArgs("u1", "d1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").WithArgs("u1", "d1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.DeleteFaculty(context.Background(), "d1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteFacultyRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM faculty_subjects").WithArgs("u1", "d1").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.DeleteFaculty(context.Background(), "d1", "u1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateFacultyMapsDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	dept := "d1"
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.CreateFaculty(context.Background(), &models.User{DepartmentID: &dept, FullName: "Ada", Email: "ada@example.edu"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}
