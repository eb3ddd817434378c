// Package availability provides the artisan availability register.
package availability

import (
	"serrupro_backend/internal/availability/handler"
	"serrupro_backend/internal/availability/repository"
	"serrupro_backend/internal/availability/service"
	"serrupro_backend/internal/events"
	apphttp "serrupro_backend/internal/http"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/logger"
	"serrupro_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the availability bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "availability"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts availability routes for artisans.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/availability")
	group.Use(httpkit.RequireRole(httpkit.RoleArtisan))
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
