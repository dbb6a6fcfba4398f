package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type tokenStub struct {
	role models.UserRole
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "valid" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "u1", Role: s.role}, nil
}

type scopeStub struct{}

func (scopeStub) Resolve(ctx context.Context, claims *models.JWTClaims) (*models.Actor, error) {
	return &models.Actor{UserID: claims.UserID, Role: claims.Role, DepartmentID: "d1"}, nil
}

func setupEngine(role models.UserRole) http.Handler {
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	h := Handlers{
		Conflict:  handler.NewConflictHandler(nil),
		Schedule:  handler.NewScheduleHandler(nil),
		Period:    handler.NewPeriodHandler(nil),
		Class:     handler.NewClassHandler(nil),
		Subject:   handler.NewSubjectHandler(nil),
		Teacher:   handler.NewTeacherHandler(nil),
		Timetable: handler.NewTimetableHandler(nil),
		Scope:     handler.NewScopeHandler(nil),
		Metrics:   handler.NewMetricsHandler(metrics, nil),
	}
	return Setup(cfg, zap.NewNop(), Dependencies{Tokens: tokenStub{role: role}, Scope: scopeStub{}, Requests: metrics}, h)
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicEndpoints(t *testing.T) {
	r := setupEngine(models.RoleDean)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAPIRequiresToken(t *testing.T) {
	r := setupEngine(models.RoleDean)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/schedules", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/v1/check-conflict", "forged").Code)
}

func TestFacultyCannotManage(t *testing.T) {
	r := setupEngine(models.RoleFaculty)

	for _, path := range []string{"/api/v1/periods", "/api/v1/classes", "/api/v1/subjects", "/api/v1/teachers"} {
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, path, "valid").Code, path)
	}
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/check-conflict", "valid").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/v1/schedules/s1", "valid").Code)
}
