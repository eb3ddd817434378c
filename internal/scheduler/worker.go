package scheduler

import (
	"context"
	"fmt"

	"serrupro_backend/platform/config"
	"serrupro_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CycleRunner executes one dispatch cycle. Implemented by the dispatch
// orchestrator.
type CycleRunner interface {
	RunCycle(ctx context.Context, interventionID uuid.UUID, attempt int) error
}

// Worker consumes scheduled dispatch cycles from the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner CycleRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner CycleRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskDispatchCycle, w.handleDispatchCycle)

	return w, nil
}

func (w *Worker) handleDispatchCycle(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDispatchCyclePayload(task)
	if err != nil {
		return err
	}

	interventionID, err := uuid.Parse(payload.InterventionID)
	if err != nil {
		return err
	}

	return w.runner.RunCycle(ctx, interventionID, payload.Attempt)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
