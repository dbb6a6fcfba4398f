package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/logger"
	"github.com/noah-isme/timetable-api/pkg/response"
)

// ContextActorKey is the gin context key storing the department-scoped actor.
const ContextActorKey = "currentActor"

// ScopeResolver maps verified claims to the caller's department.
type ScopeResolver interface {
	Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error)
}

// Scope resolves the caller's department once per request. It must run after JWT.
func Scope(resolver ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Set(logger.DepartmentIDKey, actor.DepartmentID)
		c.Next()
	}
}

// ActorFromContext returns the actor attached by Scope.
func ActorFromContext(c *gin.Context) (*models.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil, false
	}
	actor, ok := value.(*models.Actor)
	return actor, ok && actor != nil
}
