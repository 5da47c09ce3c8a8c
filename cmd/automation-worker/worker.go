package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantagecrm/automation/pkg/conditions"
	"github.com/vantagecrm/automation/pkg/dispatch"
	"github.com/vantagecrm/automation/pkg/engine"
	"github.com/vantagecrm/automation/pkg/eventbus"
	"github.com/vantagecrm/automation/pkg/events"
	"github.com/vantagecrm/automation/pkg/executor"
	"github.com/vantagecrm/automation/pkg/otelhelper"
	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/recorder"
	"github.com/vantagecrm/automation/pkg/sender"
	"github.com/vantagecrm/automation/pkg/sources/redisqueue"
	"github.com/vantagecrm/automation/pkg/sources/scheduler"
)

// WorkerConfig sizes the worker's dispatch queue and sources.
type WorkerConfig struct {
	QueueSize        int
	Workers          int
	ReconcileHorizon time.Duration
	RedisAddr        string
	RedisQueue       string
}

// WorkerManager wires the event bus, sources and dispatcher to the engine
// and runs them until shutdown.
type WorkerManager struct {
	id         string
	config     WorkerConfig
	store      persistence.Persistence
	eventBus   eventbus.EventBus
	provider   sender.Sender
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
	recorder   *recorder.Recorder
}

func NewWorkerManager(
	id string,
	config WorkerConfig,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	provider sender.Sender,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:       id,
		config:   config,
		store:    store,
		eventBus: eventBus,
		provider: provider,
		logger:   logger.With("module", "worker_manager"),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	executionRecorder := recorder.NewRecorder(w.store.Executions(), w.logger)
	w.recorder = executionRecorder

	engineOpts := []engine.Option{
		engine.WithPublisher(w.eventBus),
		engine.WithWorkerID(w.id),
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err := otelhelper.NewTracer(ctx, "automation-worker")
		if err != nil {
			w.logger.WarnContext(ctx, "Tracing disabled, failed to initialize tracer", "error", err)
		} else {
			engineOpts = append(engineOpts, engine.WithTracer(tracer))
		}
	}

	automationEngine := engine.New(
		w.store.Workflows(),
		conditions.NewEvaluator(w.logger),
		executor.NewExecutor(w.store.Templates(), w.provider, executor.DefaultConfig(), w.logger),
		executionRecorder,
		w.logger,
		engineOpts...,
	)

	w.dispatcher = dispatch.NewDispatcher(automationEngine, dispatch.Config{
		QueueSize: w.config.QueueSize,
		Workers:   w.config.Workers,
	}, w.logger)
	w.dispatcher.Start(ctx)

	err := w.eventBus.Handle(events.TriggerFiredEvent, w.handleTriggerFired)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	schedulerSource := scheduler.NewSource(w.store.Workflows(), w.dispatcher, w.logger)

	err = schedulerSource.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := schedulerSource.Stop(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop scheduler source", "error", err)
		}
	}()

	if w.config.RedisAddr != "" {
		queueSource, err := redisqueue.NewSource(redisqueue.Config{
			Addr:  w.config.RedisAddr,
			Queue: w.config.RedisQueue,
		}, w.dispatcher, w.logger)
		if err != nil {
			return err
		}

		err = queueSource.Start(ctx)
		if err != nil {
			return err
		}

		defer func() {
			err := queueSource.Stop(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to stop queue source", "error", err)
			}
		}()
	}

	reconcileDone := make(chan struct{})
	go w.reconcileLoop(ctx, reconcileDone)

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")
	close(reconcileDone)
	w.dispatcher.Close()

	return nil
}

func (w *WorkerManager) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerFired")

		return nil
	}

	logger := w.logger.With(
		"trigger_type", fired.TriggerType,
		"event_id", fired.ID,
	)

	err := w.dispatcher.Submit(fired.TriggerType, fired.Payload)
	if err != nil {
		// Nacking on a full queue lets the bus redeliver once capacity
		// returns instead of silently losing the business event.
		logger.WarnContext(ctx, "Failed to submit trigger event", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Trigger event queued for execution")

	return nil
}

// reconcileLoop periodically fails running records older than the horizon,
// covering records orphaned by a crashed worker.
func (w *WorkerManager) reconcileLoop(ctx context.Context, done <-chan struct{}) {
	if w.config.ReconcileHorizon <= 0 {
		return
	}

	ticker := time.NewTicker(w.config.ReconcileHorizon)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconciled, err := w.recorder.ReconcileStale(ctx, w.config.ReconcileHorizon)
			if err != nil {
				w.logger.ErrorContext(ctx, "Stale execution reconciliation failed", "error", err)
			} else if reconciled > 0 {
				w.logger.InfoContext(ctx, "Reconciled stale execution records", "count", reconciled)
			}
		}
	}
}
