package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	Grid(ctx context.Context, actor *models.Actor, filter models.TimetableFilter) (*models.Timetable, error)
	Export(ctx context.Context, actor *models.Actor, filter models.TimetableFilter, format string) ([]byte, string, string, error)
}

// TimetableHandler renders weekly views for a class, teacher or room.
type TimetableHandler struct {
	service timetableService
}

func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Grid godoc
// @Summary Weekly timetable grid
// @Description Exactly one of class_id, faculty_id or room_id must be given.
// @Tags Timetable
// @Produce json
// @Param class_id query string false "Class ID"
// @Param faculty_id query string false "Faculty ID"
// @Param room_id query string false "Room"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.TimetableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	grid, err := h.service.Grid(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grid)
}

// Export godoc
// @Summary Download the timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Produce text/calendar
// @Param class_id query string false "Class ID"
// @Param faculty_id query string false "Faculty ID"
// @Param room_id query string false "Room"
// @Param format query string false "csv, pdf, xlsx or ics" default(csv)
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.TimetableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	body, contentType, filename, err := h.service.Export(c.Request.Context(), actor, filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, contentType, filename, body)
}
