package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type departmentReader interface {
	Department(ctx context.Context, actor *models.Actor) (*models.Department, error)
}

// ScopeHandler describes the caller's resolved scope.
type ScopeHandler struct {
	service departmentReader
}

func NewScopeHandler(svc departmentReader) *ScopeHandler {
	return &ScopeHandler{service: svc}
}

// Me godoc
// @Summary Current user and department
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /me [get]
func (h *ScopeHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	dept, err := h.service.Department(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user": actor, "department": dept})
}
