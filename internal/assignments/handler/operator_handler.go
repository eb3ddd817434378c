package handler

import (
	"net/http"

	"serrupro_backend/internal/assignments/service"
	"serrupro_backend/internal/assignments/transport"
	"serrupro_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OperatorHandler exposes the full assignment history of a request for
// back-office review.
type OperatorHandler struct {
	svc *service.Service
}

func NewOperatorHandler(svc *service.Service) *OperatorHandler {
	return &OperatorHandler{svc: svc}
}

func (h *OperatorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/interventions/:id/assignments", h.ListForIntervention)
}

func (h *OperatorHandler) ListForIntervention(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rows, err := h.svc.ListForIntervention(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromAssignments(rows))
}
