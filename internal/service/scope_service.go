package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type scopeUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
}

// ScopeService resolves the acting user to the department every query is confined to.
type ScopeService struct {
	users  scopeUserReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

func NewScopeService(users scopeUserReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{users: users, cache: cache, ttl: ttl, logger: logger}
}

func scopeCacheKey(userID string) string {
	return "scope:user:" + userID
}

// Resolve loads the user behind the claims and returns their department scope.
func (s *ScopeService) Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error) {
	if claims == nil || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated")
	}

	var cached models.Actor
	if s.cache.Get(ctx, scopeCacheKey(claims.UserID), &cached) {
		return &cached, nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.DepartmentID == nil || *user.DepartmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no department linked")
	}

	actor := &models.Actor{
		UserID:       user.ID,
		Role:         user.Role,
		DepartmentID: *user.DepartmentID,
		FullName:     user.FullName,
	}
	s.cache.Set(ctx, scopeCacheKey(user.ID), actor, s.ttl)
	return actor, nil
}

// Forget drops the cached scope for users whose record changed.
func (s *ScopeService) Forget(ctx context.Context, userIDs ...string) {
	if s == nil || s.cache == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, scopeCacheKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
}

// Department returns the actor's department record.
func (s *ScopeService) Department(ctx context.Context, actor *models.Actor) (*models.Department, error) {
	dept, err := s.users.FindDepartment(ctx, actor.DepartmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, nil
}
