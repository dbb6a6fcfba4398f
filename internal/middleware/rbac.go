package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

// RequireRoles allows the request only when the caller holds one of the roles. The role
// stored on the user record, resolved by Scope, wins over the role in the token.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		var role models.UserRole
		if actor, ok := ActorFromContext(c); ok {
			role = actor.Role
		} else if claims, ok := ClaimsFromContext(c); ok {
			role = claims.Role
		} else {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
