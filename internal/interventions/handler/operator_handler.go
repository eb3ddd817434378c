package handler

import (
	"net/http"

	"serrupro_backend/internal/interventions/service"
	"serrupro_backend/internal/interventions/transport"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OperatorHandler serves back-office operations the generic lifecycle
// endpoints do not cover.
type OperatorHandler struct {
	svc *service.Service
	val *validator.Validator
}

func NewOperatorHandler(svc *service.Service, val *validator.Validator) *OperatorHandler {
	return &OperatorHandler{svc: svc, val: val}
}

func (h *OperatorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interventions/:id/resolve-location", h.ResolveLocation)
}

// ResolveLocation supplies coordinates for a request stuck in pending after
// a failed geocoding lookup.
func (h *OperatorHandler) ResolveLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ResolveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err = h.svc.ResolveLocation(c.Request.Context(), id, req.Latitude, req.Longitude)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "resolved"})
}
