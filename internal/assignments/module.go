// Package assignments provides the assignment coordination bounded context.
package assignments

import (
	"serrupro_backend/internal/assignments/handler"
	"serrupro_backend/internal/assignments/repository"
	"serrupro_backend/internal/assignments/service"
	"serrupro_backend/internal/events"
	apphttp "serrupro_backend/internal/http"
	"serrupro_backend/platform/httpkit"
	"serrupro_backend/platform/logger"
	"serrupro_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignments bounded context implementing http.Module.
type Module struct {
	handler         *handler.Handler
	operatorHandler *handler.OperatorHandler
	service         *service.Service
}

// NewModule creates and initializes the assignments module. The intervention
// driver is injected afterwards via Service().SetInterventionDriver.
func NewModule(
	pool *pgxpool.Pool,
	availability service.LastAssignedRecorder,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, availability, eventBus, log)
	return &Module{
		handler:         handler.New(svc, val),
		operatorHandler: handler.NewOperatorHandler(svc),
		service:         svc,
	}
}

func (m *Module) Name() string {
	return "assignments"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts assignment routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	artisanGroup := ctx.Protected.Group("/assignments")
	artisanGroup.Use(httpkit.RequireRole(httpkit.RoleArtisan))
	m.handler.RegisterRoutes(artisanGroup)

	m.operatorHandler.RegisterRoutes(ctx.Operator)
}

var _ apphttp.Module = (*Module)(nil)
