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

// Handler serves the authenticated lifecycle endpoints. Authorization per
// edge is enforced by the state machine; the handler only maps the caller's
// role to an actor.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transition", h.Transition)
	rg.POST("/:id/cancel", h.Cancel)
}

// Get returns the full request detail for artisans and operators.
func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if !ident.HasRole(httpkit.RoleArtisan) && !ident.HasRole(httpkit.RoleOperator) {
		httpkit.Error(c, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	iv, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromIntervention(*iv))
}

// Transition moves the request one edge along the status graph, acting as
// the caller's role.
func (h *Handler) Transition(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actor, ok := actorForRole(ident.Role())
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	err = h.svc.Transition(c.Request.Context(), id, domain.Status(req.Status), actor, ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	iv, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromIntervention(*iv))
}

// Cancel voids the request. Clients and operators only; artisans decline
// through their assignment instead.
func (h *Handler) Cancel(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Cancellation without a reason is allowed.
		req = transport.CancelRequest{}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actor, ok := actorForRole(ident.Role())
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	err = h.svc.Cancel(c.Request.Context(), id, req.Reason, actor, ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "cancelled"})
}

func actorForRole(role string) (domain.Actor, bool) {
	switch role {
	case httpkit.RoleClient:
		return domain.ActorClient, true
	case httpkit.RoleArtisan:
		return domain.ActorArtisan, true
	case httpkit.RoleOperator:
		return domain.ActorOperator, true
	default:
		return "", false
	}
}
