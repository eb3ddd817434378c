package handler

import (
	"net/http"
	"strings"

	"serrupro_backend/internal/assignments/repository"
	"serrupro_backend/internal/assignments/service"
	"serrupro_backend/internal/assignments/transport"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the artisan-facing assignment endpoints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts artisan assignment routes. The group is expected to
// carry auth middleware and the artisan role check.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/respond", h.Respond)
}

// ListMine returns the calling artisan's assignments, optionally filtered by
// a comma-separated status list.
func (h *Handler) ListMine(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	var statuses []repository.Status
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, repository.Status(strings.TrimSpace(s)))
		}
	}

	rows, err := h.svc.ListForArtisan(c.Request.Context(), ident.UserID(), statuses)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromAssignments(rows))
}

// Get returns one assignment if it belongs to the caller.
func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	a, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if a.ArtisanID != ident.UserID() {
		httpkit.Error(c, http.StatusForbidden, "this proposal belongs to another artisan", nil)
		return
	}
	httpkit.OK(c, transport.FromAssignment(*a))
}

// Respond applies an accept or refuse decision to a proposal.
func (h *Handler) Respond(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	a, err := h.svc.Respond(c.Request.Context(), id, ident.UserID(), service.Decision(req.Decision))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromAssignment(*a))
}
