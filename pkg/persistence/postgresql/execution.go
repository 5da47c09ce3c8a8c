package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// ExecutionRepository handles execution history database operations. Records
// are written once in the running state and updated once with their terminal
// outcome.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , workflow_id
  , workflow_name
  , trigger_type
  , trigger_payload
  , status
  , actions_executed
  , errors
  , warnings
  , executed_at
  , duration_ms
`

func (r *ExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	payloadJSON, err := json.Marshal(record.TriggerPayload)
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, fmt.Errorf("failed to marshal payload: %w", err))
	}

	errorsJSON, err := json.Marshal(stringsOrEmpty(record.Errors))
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, fmt.Errorf("failed to marshal errors: %w", err))
	}

	warningsJSON, err := json.Marshal(stringsOrEmpty(record.Warnings))
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, fmt.Errorf("failed to marshal warnings: %w", err))
	}

	query := `
		INSERT INTO executions (id, workflow_id, workflow_name, trigger_type, trigger_payload,
			status, actions_executed, errors, warnings, executed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.WorkflowID,
		record.WorkflowName,
		string(record.TriggerType),
		payloadJSON,
		string(record.Status),
		record.ActionsExecuted,
		errorsJSON,
		warningsJSON,
		record.ExecutedAt,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	return nil
}

// UpdateOutcome applies the terminal outcome to a still-running record. The
// status guard in the WHERE clause makes the terminal transition a one-shot:
// a record that already completed or failed is never rewritten.
func (r *ExecutionRepository) UpdateOutcome(ctx context.Context, id string, outcome models.ExecutionOutcome) error {
	errorsJSON, err := json.Marshal(stringsOrEmpty(outcome.Errors))
	if err != nil {
		return persistence.NewExecutionError("UpdateOutcome", id, fmt.Errorf("failed to marshal errors: %w", err))
	}

	warningsJSON, err := json.Marshal(stringsOrEmpty(outcome.Warnings))
	if err != nil {
		return persistence.NewExecutionError("UpdateOutcome", id, fmt.Errorf("failed to marshal warnings: %w", err))
	}

	query := `
		UPDATE executions
		SET status = $2, actions_executed = $3, errors = $4, warnings = $5, duration_ms = $6
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query,
		id,
		string(outcome.Status),
		outcome.ActionsExecuted,
		errorsJSON,
		warningsJSON,
		outcome.Duration.Milliseconds(),
	)
	if err != nil {
		return persistence.NewExecutionError("UpdateOutcome", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("UpdateOutcome", id, err)
	}

	if affected == 0 {
		_, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}

		return persistence.NewExecutionError("UpdateOutcome", id, persistence.ErrExecutionAlreadyTerminal)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	record, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return record, nil
}

func (r *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions`
	args := make([]any, 0, 2)

	if opts.WorkflowID != "" {
		args = append(args, opts.WorkflowID)
		query += fmt.Sprintf(" WHERE workflow_id = $%d", len(args))
	}

	query += " ORDER BY executed_at DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.queryExecutions(ctx, query, args...)
}

func (r *ExecutionRepository) StaleRunning(ctx context.Context, before time.Time) ([]*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'running' AND executed_at < $1
		ORDER BY executed_at`

	return r.queryExecutions(ctx, query, before)
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewExecutionError("List", "", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewExecutionError("List", "", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewExecutionError("List", "", err)
	}

	return records, nil
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record       models.ExecutionRecord
		triggerType  string
		status       string
		payloadJSON  []byte
		errorsJSON   []byte
		warningsJSON []byte
		durationMS   int64
	)

	err := row.Scan(
		&record.ID,
		&record.WorkflowID,
		&record.WorkflowName,
		&triggerType,
		&payloadJSON,
		&status,
		&record.ActionsExecuted,
		&errorsJSON,
		&warningsJSON,
		&record.ExecutedAt,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	record.TriggerType = models.TriggerType(triggerType)
	record.Status = models.ExecutionStatus(status)
	record.Duration = time.Duration(durationMS) * time.Millisecond

	err = json.Unmarshal(payloadJSON, &record.TriggerPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	err = json.Unmarshal(errorsJSON, &record.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
	}

	err = json.Unmarshal(warningsJSON, &record.Warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	return &record, nil
}

// stringsOrEmpty keeps JSONB columns as [] instead of null.
func stringsOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
