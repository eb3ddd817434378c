// Package interventions provides the request lifecycle bounded context.
package interventions

import (
	"time"

	"serrupro_backend/internal/events"
	apphttp "serrupro_backend/internal/http"
	"serrupro_backend/internal/interventions/handler"
	"serrupro_backend/internal/interventions/repository"
	"serrupro_backend/internal/interventions/service"
	"serrupro_backend/platform/logger"
	"serrupro_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the interventions bounded context implementing http.Module.
type Module struct {
	handler         *handler.Handler
	publicHandler   *handler.PublicHandler
	operatorHandler *handler.OperatorHandler
	service         *service.Service
}

// NewModule creates and initializes the interventions module. The
// assignment guard is injected afterwards via Service().SetAssignmentGuard.
func NewModule(
	pool *pgxpool.Pool,
	geocoder service.Geocoder,
	eventBus events.Bus,
	retentionPeriod time.Duration,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, geocoder, eventBus, retentionPeriod, log)
	return &Module{
		handler:         handler.New(svc, val),
		publicHandler:   handler.NewPublicHandler(svc, val),
		operatorHandler: handler.NewOperatorHandler(svc, val),
		service:         svc,
	}
}

func (m *Module) Name() string {
	return "interventions"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts intervention routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.publicHandler.RegisterRoutes(ctx.Public)

	group := ctx.Protected.Group("/interventions")
	m.handler.RegisterRoutes(group)

	m.operatorHandler.RegisterRoutes(ctx.Operator)
}

var _ apphttp.Module = (*Module)(nil)
