package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	lastFilter models.TimetableFilter
	lastFormat string
}

func (m *timetableServiceMock) Grid(ctx context.Context, actor *models.Actor, filter models.TimetableFilter) (*models.Timetable, error) {
	m.lastFilter = filter
	if filter.ClassID == "" && filter.FacultyID == "" && filter.RoomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of class_id, faculty_id or room_id is required")
	}
	return &models.Timetable{Title: "Room R-1", Days: []string{"MONDAY"}}, nil
}

func (m *timetableServiceMock) Export(ctx context.Context, actor *models.Actor, filter models.TimetableFilter, format string) ([]byte, string, string, error) {
	m.lastFilter = filter
	m.lastFormat = format
	return []byte("BEGIN:VCALENDAR"), "text/calendar; charset=utf-8", "timetable-room-R-1.ics", nil
}

func TestTimetableHandlerGrid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{}
	r := gin.New()
	r.GET("/timetable", withActor(deanActor()), NewTimetableHandler(mockSvc).Grid)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetable?room_id=R-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R-1", mockSvc.lastFilter.RoomID)
	assert.Contains(t, w.Body.String(), `"title":"Room R-1"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetable", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableServiceMock{}
	r := gin.New()
	r.GET("/timetable/export", withActor(deanActor()), NewTimetableHandler(mockSvc).Export)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetable/export?room_id=R-1&format=ics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ics", mockSvc.lastFormat)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable-room-R-1.ics"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "BEGIN:VCALENDAR", w.Body.String())
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	failing := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	r := gin.New()
	r.GET("/ready", healthy.Ready)
	r.GET("/ready-failing", failing.Ready)
	r.GET("/metrics", healthy.Prometheus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready-failing", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
