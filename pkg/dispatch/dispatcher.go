// Package dispatch decouples event intake from workflow execution with a
// bounded in-process queue drained by a fixed worker pool.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/recorder"
)

// ErrQueueFull is returned by Submit when the queue has no free slot.
// Callers own the backpressure decision; Submit never blocks.
var ErrQueueFull = errors.New("dispatch queue is full")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher is closed")

// Engine is the execution entry point the workers call for each queued event.
type Engine interface {
	Trigger(ctx context.Context, triggerType models.TriggerType, payload models.EventPayload) error
}

type job struct {
	triggerType models.TriggerType
	payload     models.EventPayload
	requeued    bool
}

// Dispatcher owns the bounded queue and the worker pool.
type Dispatcher struct {
	engine  Engine
	queue   chan job
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// Config sizes the dispatcher. Zero values fall back to defaults.
type Config struct {
	QueueSize int
	Workers   int
}

const (
	defaultQueueSize = 1024
	defaultWorkers   = 8
)

func NewDispatcher(engine Engine, config Config, logger *slog.Logger) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}

	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}

	return &Dispatcher{
		engine:  engine,
		queue:   make(chan job, config.QueueSize),
		workers: config.Workers,
		logger:  logger.With("module", "dispatcher"),
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled or
// Close drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.running.Add(1)

		go d.work(ctx, i)
	}

	d.logger.InfoContext(ctx, "Dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Submit enqueues a trigger event without blocking. A full queue fails fast
// with ErrQueueFull so the producer can decide what to do with the event.
func (d *Dispatcher) Submit(triggerType models.TriggerType, payload models.EventPayload) error {
	return d.enqueue(job{triggerType: triggerType, payload: payload})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops intake, waits for queued events to drain and for in-flight
// runs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}

	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.running.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.running.Done()

	logger := d.logger.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.queue:
			if !ok {
				return
			}

			d.run(ctx, logger, j)
		}
	}
}

// run executes one queued event. A run that could not persist its execution
// record is requeued exactly once; a second failure is alerted and the event
// dropped, so a broken store cannot wedge the queue.
func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, j job) {
	err := d.engine.Trigger(ctx, j.triggerType, j.payload)
	if err == nil {
		return
	}

	if !errors.Is(err, recorder.ErrBeginRecord) {
		logger.ErrorContext(ctx, "Trigger rejected", "trigger_type", j.triggerType, "error", err)

		return
	}

	if j.requeued {
		logger.ErrorContext(ctx, "ALERT: dropping event, execution record store unavailable",
			"trigger_type", j.triggerType,
			"error", err,
		)

		return
	}

	j.requeued = true

	requeueErr := d.enqueue(j)
	if requeueErr != nil {
		logger.ErrorContext(ctx, "ALERT: dropping event, requeue failed",
			"trigger_type", j.triggerType,
			"error", requeueErr,
		)

		return
	}

	logger.WarnContext(ctx, "Requeued event after record persistence failure", "trigger_type", j.triggerType)
}
