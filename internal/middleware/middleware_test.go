package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type stubResolver struct {
	actor *models.Actor
	err   error
}

func (s stubResolver) Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error) {
	return s.actor, s.err
}

type observedRequest struct {
	method string
	path   string
	status int
}

type stubObserver struct {
	seen []observedRequest
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.seen = append(s.seen, observedRequest{method: method, path: path, status: status})
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user":       c.GetString(logger.UserIDKey),
			"department": c.GetString(logger.DepartmentIDKey),
			"has_actor":  actor != nil,
		})
	})
	r.GET("/resource/:id", handlers...)
	return r
}

func perform(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource/1", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTMiddleware(t *testing.T) {
	r := newEngine(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleDean}}))

	w := perform(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = perform(r, "bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"u1"`)
}

func TestScopeMiddleware(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleDean}
	actor := &models.Actor{UserID: "u1", Role: models.RoleDean, DepartmentID: "d1"}

	r := newEngine(JWT(stubValidator{claims: claims}), Scope(stubResolver{actor: actor}))
	w := perform(r, "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"department":"d1"`)
	assert.Contains(t, w.Body.String(), `"has_actor":true`)

	r = newEngine(JWT(stubValidator{claims: claims}), Scope(stubResolver{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "no department linked")}))
	w = perform(r, "Bearer good")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "PRECONDITION_FAILED", errorCode(t, w))

	r = newEngine(Scope(stubResolver{actor: actor}))
	w = perform(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesPrefersResolvedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleDean}

	// token says dean, record says faculty
	demoted := &models.Actor{UserID: "u1", Role: models.RoleFaculty, DepartmentID: "d1"}
	r := newEngine(JWT(stubValidator{claims: claims}), Scope(stubResolver{actor: demoted}), RequireRoles(models.RoleDean, models.RoleAdmin))
	w := perform(r, "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	r = newEngine(JWT(stubValidator{claims: claims}), RequireRoles(models.RoleDean))
	w = perform(r, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)

	r = newEngine(RequireRoles(models.RoleDean))
	w = perform(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	observer := &stubObserver{}
	r := newEngine(Metrics(observer))

	perform(r, "")
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, observer.seen, 1)
	assert.Equal(t, observedRequest{method: http.MethodGet, path: "/resource/:id", status: http.StatusOK}, observer.seen[0])
}
