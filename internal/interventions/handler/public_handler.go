package handler

import (
	"net/http"

	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/internal/interventions/service"
	"serrupro_backend/internal/interventions/transport"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// PublicHandler serves the unauthenticated client surface: request intake
// and tracking. A stranded caller on the street has no account; email plus
// the returned tracking code is their whole session.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interventions", h.Create)
	rg.GET("/interventions/track/:code", h.Track)
	rg.POST("/interventions/track/:code/cancel", h.CancelByTracking)
}

// Create accepts a complete request submission.
func (h *PublicHandler) Create(c *gin.Context) {
	var req transport.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := service.CreateParams{
		Kind:           domain.Kind(req.Kind),
		Situation:      req.Situation,
		Street:         req.Street,
		PostalCode:     req.PostalCode,
		City:           req.City,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		PriceMinCents:  req.PriceMinCents,
		PriceMaxCents:  req.PriceMaxCents,
		ClientEmail:    req.ClientEmail,
		ClientPhone:    req.ClientPhone,
	}

	// An authenticated client gets the request attached to their account.
	if ident := httpkit.GetIdentity(c); ident.IsAuthenticated() && ident.HasRole(httpkit.RoleClient) {
		userID := ident.UserID()
		if userID != uuid.Nil {
			params.ClientUserID = &userID
		}
	}

	iv, err := h.svc.Create(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.FromIntervention(*iv))
}

// Track returns the coarse public view for a tracking code.
func (h *PublicHandler) Track(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	iv, err := h.svc.Track(c.Request.Context(), code)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromInterventionPublic(*iv))
}

// CancelByTracking lets an anonymous client cancel their own request. The
// submitted email must match the one the request was created with.
func (h *PublicHandler) CancelByTracking(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.PublicCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.svc.CancelByTracking(c.Request.Context(), code, req.Email, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "cancelled"})
}
