package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type memoryCacheRepo struct {
	data map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type mockScopeUsers struct {
	users map[string]*models.User
	calls int
}

func (m *mockScopeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.calls++
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScopeUsers) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	if id == "d1" {
		return &models.Department{ID: "d1", Name: "Computer Science"}, nil
	}
	return nil, sql.ErrNoRows
}

func newScopeFixture() (*ScopeService, *mockScopeUsers, *memoryCacheRepo) {
	dept := "d1"
	users := &mockScopeUsers{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleDean, DepartmentID: &dept, FullName: "Dana Dean"},
		"u2": {ID: "u2", Role: models.RoleFaculty},
	}}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	return NewScopeService(users, cache, time.Minute, nil), users, cacheRepo
}

func TestScopeServiceResolveCachesActor(t *testing.T) {
	svc, users, cacheRepo := newScopeFixture()
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty}

	actor, err := svc.Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "d1", actor.DepartmentID)
	assert.Equal(t, models.RoleDean, actor.Role)
	assert.Contains(t, cacheRepo.data, "scope:user:u1")

	again, err := svc.Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, actor, again)
	assert.Equal(t, 1, users.calls)

	svc.Forget(context.Background(), "u1")
	assert.NotContains(t, cacheRepo.data, "scope:user:u1")
	_, err = svc.Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, 2, users.calls)
}

func TestScopeServiceResolveFailures(t *testing.T) {
	svc, _, _ := newScopeFixture()

	_, err := svc.Resolve(context.Background(), nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Resolve(context.Background(), &models.JWTClaims{UserID: "ghost"})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Resolve(context.Background(), &models.JWTClaims{UserID: "u2"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Equal(t, "no department linked", appErrors.FromError(err).Message)
}

func TestScopeServiceDepartment(t *testing.T) {
	svc, _, _ := newScopeFixture()

	dept, err := svc.Department(context.Background(), testActor())
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", dept.Name)

	_, err = svc.Department(context.Background(), &models.Actor{DepartmentID: "d9"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)

	cache.Set(context.Background(), "k", "v", 0)
	var out string
	assert.False(t, cache.Get(context.Background(), "k", &out))
	assert.Empty(t, repo.data)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	nilCache.Invalidate(context.Background(), "k")
}

func TestScopeServiceForgetOnNilService(t *testing.T) {
	var scope *ScopeService
	assert.NotPanics(t, func() { scope.Forget(context.Background(), "u1") })
}
