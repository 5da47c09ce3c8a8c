// Package recorder persists execution history for every engine run.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// ErrBeginRecord marks a run that could not persist its running record. The
// dispatcher requeues the triggering event once when it sees this error.
var ErrBeginRecord = errors.New("failed to begin execution record")

// Recorder writes the running record before any action executes and applies
// the terminal outcome afterwards, so every attempted run is observable even
// if the process dies mid-execution.
type Recorder struct {
	store  persistence.ExecutionRepository
	logger *slog.Logger
}

func NewRecorder(store persistence.ExecutionRepository, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With("module", "execution_recorder"),
	}
}

// Handle tracks one in-flight run between Begin and Complete.
type Handle struct {
	Record    *models.ExecutionRecord
	startedAt time.Time
	completed atomic.Bool
}

// Begin synchronously persists a running record for the workflow. The record
// snapshots the trigger payload for auditability.
func (r *Recorder) Begin(ctx context.Context, workflow *models.Workflow, triggerType models.TriggerType, payload models.EventPayload) (*Handle, error) {
	now := time.Now().UTC()

	record := &models.ExecutionRecord{
		ID:             "exec-" + uuid.New().String()[:8],
		WorkflowID:     workflow.ID,
		WorkflowName:   workflow.Name,
		TriggerType:    triggerType,
		TriggerPayload: payload,
		Status:         models.ExecutionRunning,
		ExecutedAt:     now,
	}

	err := r.store.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeginRecord, err)
	}

	return &Handle{Record: record, startedAt: now}, nil
}

// Complete transitions the record to its terminal status. It is idempotent:
// a second call on the same handle is a no-op, guarding retry paths against
// duplicate completion. The outcome duration is filled from the handle when
// unset.
func (r *Recorder) Complete(ctx context.Context, handle *Handle, outcome models.ExecutionOutcome) error {
	if !handle.completed.CompareAndSwap(false, true) {
		return nil
	}

	if outcome.Duration == 0 {
		outcome.Duration = time.Since(handle.startedAt)
	}

	err := r.store.UpdateOutcome(ctx, handle.Record.ID, outcome)
	if err != nil {
		// The run happened; losing the outcome must not fail the run.
		r.logger.ErrorContext(ctx, "Failed to persist execution outcome",
			"execution_id", handle.Record.ID,
			"workflow_id", handle.Record.WorkflowID,
			"error", err,
		)

		return err
	}

	handle.Record.Status = outcome.Status
	handle.Record.ActionsExecuted = outcome.ActionsExecuted
	handle.Record.Errors = outcome.Errors
	handle.Record.Warnings = outcome.Warnings
	handle.Record.Duration = outcome.Duration

	return nil
}

// ReconcileStale sweeps records left running longer than the horizon, the
// residue of a process crash between Begin and Complete, and fails them so
// the history viewer never shows a run as in-flight forever.
func (r *Recorder) ReconcileStale(ctx context.Context, horizon time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-horizon)

	stale, err := r.store.StaleRunning(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale running records: %w", err)
	}

	reconciled := 0

	for _, record := range stale {
		outcome := models.ExecutionOutcome{
			Status:   models.ExecutionFailed,
			Errors:   []string{"reconciled: stale running record"},
			Duration: time.Since(record.ExecutedAt),
		}

		err := r.store.UpdateOutcome(ctx, record.ID, outcome)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to reconcile stale record", "execution_id", record.ID, "error", err)

			continue
		}

		reconciled++
	}

	if reconciled > 0 {
		r.logger.InfoContext(ctx, "Reconciled stale running records", "count", reconciled)
	}

	return reconciled, nil
}
