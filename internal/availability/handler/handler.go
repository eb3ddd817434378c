package handler

import (
	"net/http"

	"serrupro_backend/internal/availability/service"
	"serrupro_backend/internal/availability/transport"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler serves the artisan availability endpoints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Set)
}

// Get returns the caller's availability record.
func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	rec, err := h.svc.Get(c.Request.Context(), ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRecord(*rec))
}

// Set replaces the caller's availability record.
func (h *Handler) Set(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	var req transport.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	err := h.svc.Set(c.Request.Context(), ident.UserID(), service.SetParams{
		Available: req.Available,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  req.RadiusKm,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "updated"})
}
