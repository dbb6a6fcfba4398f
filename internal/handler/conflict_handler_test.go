package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type conflictCheckerMock struct {
	result  *service.CheckConflictResult
	err     error
	lastReq service.CheckConflictRequest
	called  bool
}

func (m *conflictCheckerMock) Check(ctx context.Context, actor *models.Actor, req service.CheckConflictRequest) (*service.CheckConflictResult, error) {
	m.called = true
	m.lastReq = req
	return m.result, m.err
}

func withActor(actor *models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextActorKey, actor)
		c.Next()
	}
}

func deanActor() *models.Actor {
	return &models.Actor{UserID: "u1", Role: models.RoleDean, DepartmentID: "d1"}
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConflictHandlerCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	day := "MONDAY"
	mockSvc := &conflictCheckerMock{result: &service.CheckConflictResult{Conflicts: []models.ScheduleConflict{
		{Type: models.ConflictRoom, Schedule: models.Schedule{ID: "s1", Day: &day, StartTime: "08:00", EndTime: "09:00"}},
	}}}
	r := gin.New()
	r.POST("/check-conflict", withActor(deanActor()), middleware.RequireRoles(models.RoleDean), NewConflictHandler(mockSvc).Check)

	w := postJSON(r, "/check-conflict", `{"room_id":"R-1","day":"MONDAY","start_time":"08:30","end_time":"09:30"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R-1", *mockSvc.lastReq.RoomID)

	var body struct {
		Data service.CheckConflictResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Conflicts, 1)
	assert.Equal(t, models.ConflictRoom, body.Data.Conflicts[0].Type)
	assert.Equal(t, "s1", body.Data.Conflicts[0].Schedule.ID)
}

func TestConflictHandlerForbidsFaculty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &conflictCheckerMock{}
	faculty := &models.Actor{UserID: "u2", Role: models.RoleFaculty, DepartmentID: "d1"}
	r := gin.New()
	r.POST("/check-conflict", withActor(faculty), middleware.RequireRoles(models.RoleDean), NewConflictHandler(mockSvc).Check)

	w := postJSON(r, "/check-conflict", `{"day":"MONDAY","start_time":"08:00","end_time":"09:00"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.called)
}

func TestConflictHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &conflictCheckerMock{err: appErrors.Clone(appErrors.ErrForbidden, "department outside of your scope")}
	r := gin.New()
	r.POST("/check-conflict", withActor(deanActor()), NewConflictHandler(mockSvc).Check)

	w := postJSON(r, "/check-conflict", `{"day":"MONDAY"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)

	w = postJSON(r, "/check-conflict", `{"day":"MONDAY","start_time":"08:00","end_time":"09:00","department_id":"d2"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "department outside of your scope")

	bare := gin.New()
	bare.POST("/check-conflict", NewConflictHandler(mockSvc).Check)
	w = postJSON(bare, "/check-conflict", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
