package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type conflictChecker interface {
	Check(ctx context.Context, actor *models.Actor, req service.CheckConflictRequest) (*service.CheckConflictResult, error)
}

// ConflictHandler answers "would this booking collide?" without writing anything.
type ConflictHandler struct {
	service conflictChecker
}

func NewConflictHandler(svc conflictChecker) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

// Check godoc
// @Summary Check a proposed booking for conflicts
// @Description Returns every stored schedule that shares the faculty member or room during an overlapping window on the same day.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CheckConflictRequest true "Proposed booking"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /check-conflict [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.CheckConflictRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Check(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
