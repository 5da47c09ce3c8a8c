// Package engine orchestrates workflow runs: trigger matching, sequential
// action execution and execution-history bookkeeping.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vantagecrm/automation/pkg/conditions"
	"github.com/vantagecrm/automation/pkg/eventbus"
	"github.com/vantagecrm/automation/pkg/events"
	"github.com/vantagecrm/automation/pkg/executor"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/otelhelper"
	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/recorder"
)

// Engine is the automation core. Trigger is its sole entry point: CRM
// producers never touch workflows, templates or providers directly.
type Engine struct {
	workflows persistence.WorkflowRepository
	evaluator *conditions.Evaluator
	executor  *executor.Executor
	recorder  *recorder.Recorder
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	workerID  string
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher makes the engine announce execution outcomes on the bus.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

// WithTracer enables spans around runs and actions.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithWorkerID stamps published events with the executing worker.
func WithWorkerID(id string) Option {
	return func(e *Engine) { e.workerID = id }
}

func New(
	workflows persistence.WorkflowRepository,
	evaluator *conditions.Evaluator,
	actionExecutor *executor.Executor,
	executionRecorder *recorder.Recorder,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		workflows: workflows,
		evaluator: evaluator,
		executor:  actionExecutor,
		recorder:  executionRecorder,
		logger:    logger.With("module", "workflow_engine"),
		tracer:    noop.NewTracerProvider().Tracer("workflow_engine"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Trigger runs every matching active workflow for the event. Matching
// workflows run concurrently; within one workflow, actions run sequentially
// in declared order and a failed action never aborts the remaining ones.
//
// The returned error covers boundary failures only: a malformed payload
// (*models.PayloadError), a workflow load failure, or a run that could not
// begin its execution record (recorder.ErrBeginRecord, requeued once by the
// dispatcher). Action failures are recorded, not returned.
func (e *Engine) Trigger(ctx context.Context, triggerType models.TriggerType, payload models.EventPayload) error {
	err := models.ValidatePayload(triggerType, payload)
	if err != nil {
		return err
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.trigger",
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
	)
	defer span.End()

	logger := e.logger.With("trigger_type", triggerType)

	candidates, err := e.workflows.ActiveByTrigger(ctx, triggerType)
	if err != nil {
		return fmt.Errorf("failed to load workflows for trigger %s: %w", triggerType, err)
	}

	matching := make([]*models.Workflow, 0, len(candidates))

	for _, workflow := range candidates {
		if e.evaluator.Matches(workflow.Trigger.Conditions, payload) {
			matching = append(matching, workflow)
		}
	}

	logger.InfoContext(ctx, "Matched workflows for trigger",
		"candidates", len(candidates),
		"matching", len(matching),
	)

	if len(matching) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		beginErr error
	)

	for _, workflow := range matching {
		wg.Add(1)

		go func(workflow *models.Workflow) {
			defer wg.Done()

			err := e.runWorkflow(ctx, workflow, triggerType, payload)
			if err != nil {
				mu.Lock()
				if beginErr == nil {
					beginErr = err
				}
				mu.Unlock()
			}
		}(workflow)
	}

	wg.Wait()

	return beginErr
}

// runWorkflow executes one matched workflow: begin record, run actions in
// order, complete record, announce the outcome.
func (e *Engine) runWorkflow(ctx context.Context, workflow *models.Workflow, triggerType models.TriggerType, payload models.EventPayload) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run_workflow",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
	)
	defer span.End()

	handle, err := e.recorder.Begin(ctx, workflow, triggerType, payload)
	if err != nil {
		e.logger.ErrorContext(ctx, "Cannot begin execution record", "workflow_id", workflow.ID, "error", err)
		otelhelper.SetError(span, err, attribute.String(otelhelper.WorkflowIDKey, workflow.ID))

		return err
	}

	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, handle.Record.ID),
		attribute.String(otelhelper.WorkerIDKey, e.workerID),
	)

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", handle.Record.ID,
	)
	logger.InfoContext(ctx, "Executing workflow", "actions", len(workflow.Actions))

	start := time.Now()

	var (
		executed int
		errs     []string
		warnings []string
	)

	for position, action := range workflow.Actions {
		actionCtx, actionSpan := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_action",
			attribute.String(otelhelper.ActionKindKey, string(action.Kind)),
			attribute.String(otelhelper.TemplateIDKey, action.TemplateID),
		)

		result := e.executor.Execute(actionCtx, action, payload, workflow.Variables)
		actionSpan.End()

		warnings = append(warnings, result.Warnings...)

		if result.Status == executor.ActionSent {
			executed++

			continue
		}

		// Continue-on-error: one bad recipient must not suppress the
		// remaining notifications in the same workflow.
		errs = append(errs, fmt.Sprintf("action %d (%s %s): %s", position, action.Kind, action.TemplateID, result.Reason))
		logger.WarnContext(ctx, "Action failed", "position", position, "kind", action.Kind, "reason", result.Reason)
	}

	outcome := models.ExecutionOutcome{
		Status:          terminalStatus(len(workflow.Actions), executed),
		ActionsExecuted: executed,
		Errors:          errs,
		Warnings:        warnings,
		Duration:        time.Since(start),
	}

	completeErr := e.recorder.Complete(ctx, handle, outcome)
	if completeErr != nil {
		logger.ErrorContext(ctx, "Failed to complete execution record", "error", completeErr)
	}

	logger.InfoContext(ctx, "Workflow execution finished",
		"status", outcome.Status,
		"actions_executed", executed,
		"errors", len(errs),
		"duration", outcome.Duration,
	)

	e.publishOutcome(ctx, handle.Record.ID, workflow, triggerType, outcome)

	return nil
}

// terminalStatus implements the best-effort delivery policy: a run fails
// only when it had actions and none of them sent. Partial success and
// zero-action no-op matches complete.
func terminalStatus(total, executed int) models.ExecutionStatus {
	if total > 0 && executed == 0 {
		return models.ExecutionFailed
	}

	return models.ExecutionCompleted
}

func (e *Engine) publishOutcome(ctx context.Context, executionID string, workflow *models.Workflow, triggerType models.TriggerType, outcome models.ExecutionOutcome) {
	if e.publisher == nil {
		return
	}

	var event eventbus.Event

	switch outcome.Status {
	case models.ExecutionFailed:
		failedEvent := events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent),
			ExecutionID: executionID,
			WorkflowID:  workflow.ID,
			TriggerType: triggerType,
			Errors:      outcome.Errors,
			Duration:    outcome.Duration,
		}
		failedEvent.WorkerID = e.workerID
		event = failedEvent
	default:
		completedEvent := events.ExecutionCompleted{
			BaseEvent:       events.NewBaseEvent(events.ExecutionCompletedEvent),
			ExecutionID:     executionID,
			WorkflowID:      workflow.ID,
			TriggerType:     triggerType,
			ActionsExecuted: outcome.ActionsExecuted,
			ErrorCount:      len(outcome.Errors),
			Duration:        outcome.Duration,
		}
		completedEvent.WorkerID = e.workerID
		event = completedEvent
	}

	err := e.publisher.Publish(ctx, workflow.ID, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish execution outcome event", "workflow_id", workflow.ID, "error", err)
	}
}
