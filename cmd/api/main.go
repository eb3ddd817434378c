package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serrupro_backend/internal/adapters"
	"serrupro_backend/internal/assignments"
	"serrupro_backend/internal/availability"
	"serrupro_backend/internal/dispatch"
	"serrupro_backend/internal/email"
	"serrupro_backend/internal/events"
	"serrupro_backend/internal/geocoding"
	apphttp "serrupro_backend/internal/http"
	"serrupro_backend/internal/http/router"
	"serrupro_backend/internal/interventions"
	"serrupro_backend/internal/matching"
	matchingrepo "serrupro_backend/internal/matching/repository"
	"serrupro_backend/internal/notification"
	"serrupro_backend/internal/scheduler"
	"serrupro_backend/platform/config"
	"serrupro_backend/platform/db"
	"serrupro_backend/platform/logger"
	"serrupro_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	retryClient, closeRetries := initRetryScheduler(cfg, log)
	if closeRetries != nil {
		defer closeRetries()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	geocoder := geocoding.NewService(cfg, log)

	availabilityModule := availability.NewModule(pool, eventBus, val, log)
	assignmentsModule := assignments.NewModule(pool, availabilityModule.Service(), eventBus, val, log)
	interventionsModule := interventions.NewModule(pool, geocoder, eventBus, cfg.GetRetentionPeriod(), val, log)

	// The lifecycle and the coordinator reference each other; both sides are
	// wired through adapters after construction.
	interventionsModule.Service().SetAssignmentGuard(
		adapters.NewAssignmentGuardAdapter(assignmentsModule.Service()))
	assignmentsModule.Service().SetInterventionDriver(
		adapters.NewInterventionDriverAdapter(interventionsModule.Service()))

	matcher := matching.NewMatcher(matchingrepo.New(pool))
	orchestrator := dispatch.NewOrchestrator(
		interventionsModule.Service(),
		adapters.NewDispatchCoordinatorAdapter(assignmentsModule.Service()),
		matcher,
		retryClient,
		eventBus,
		dispatch.PolicyFromConfig(cfg),
		log,
	)
	orchestrator.Start()

	relay := notification.NewRelay(initEmailSender(cfg, log), cfg.GetTrackingBaseURL(), log)
	relay.Start(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			interventionsModule,
			assignmentsModule,
			availabilityModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRetryScheduler returns a no-op-safe retry client. Without Redis the
// API still serves requests; dispatch retries only run where the worker is.
func initRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dispatch retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch retry client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initEmailSender(cfg config.EmailConfig, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email delivery disabled; client notifications will be dropped")
		return email.NopSender{}
	}
	return email.NewSMTPSender(cfg)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
