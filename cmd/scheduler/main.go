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
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	retryClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch retry client", "error", err)
		panic("failed to initialize dispatch retry client: " + err.Error())
	}
	defer func() { _ = retryClient.Close() }()

	// Full module graph, no HTTP handlers required. The worker re-enters the
	// same services the API uses; the database arbitrates between them.
	geocoder := geocoding.NewService(cfg, log)
	availabilityModule := availability.NewModule(pool, eventBus, val, log)
	assignmentsModule := assignments.NewModule(pool, availabilityModule.Service(), eventBus, val, log)
	interventionsModule := interventions.NewModule(pool, geocoder, eventBus, cfg.GetRetentionPeriod(), val, log)

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

	worker, err := scheduler.NewWorker(cfg, orchestrator, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	expirySweeper := scheduler.NewExpirySweeper(assignmentsModule.Service(), log,
		getDurationEnv("EXPIRY_SWEEP_INTERVAL", 10*time.Second))
	retentionSweeper := scheduler.NewRetentionSweeper(interventionsModule.Service(), log,
		getDurationEnv("RETENTION_SWEEP_INTERVAL", time.Hour))
	scheduledReleaseSweeper := scheduler.NewScheduledReleaseSweeper(interventionsModule.Service(), log,
		getDurationEnv("SCHEDULED_RELEASE_INTERVAL", time.Minute),
		getDurationEnv("SCHEDULED_RELEASE_LEAD", 2*time.Hour))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		expirySweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		retentionSweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scheduledReleaseSweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
