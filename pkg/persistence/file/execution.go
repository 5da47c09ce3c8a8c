package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// ExecutionRepository stores one JSON file per execution record under
// executions/. Records are keyed by id so concurrent workers write disjoint
// files.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) dir() string {
	return filepath.Join(r.root, "executions")
}

func (r *ExecutionRepository) Create(_ context.Context, record *models.ExecutionRecord) error {
	err := writeJSON(r.dir(), record.ID, record)
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateOutcome(ctx context.Context, id string, outcome models.ExecutionOutcome) error {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if record.Status.Terminal() {
		return persistence.NewExecutionError("UpdateOutcome", id, persistence.ErrExecutionAlreadyTerminal)
	}

	record.Status = outcome.Status
	record.ActionsExecuted = outcome.ActionsExecuted
	record.Errors = outcome.Errors
	record.Warnings = outcome.Warnings
	record.Duration = outcome.Duration

	err = writeJSON(r.dir(), id, record)
	if err != nil {
		return persistence.NewExecutionError("UpdateOutcome", id, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	var record models.ExecutionRecord

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return &record, nil
}

func (r *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.ExecutionRecord, error) {
	ids, err := listJSONIDs(r.dir())
	if err != nil {
		return nil, persistence.NewExecutionError("List", "", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(ids))

	for _, id := range ids {
		record, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if opts.WorkflowID != "" && record.WorkflowID != opts.WorkflowID {
			continue
		}

		records = append(records, record)
	}

	// Newest first, the order the history viewer wants.
	sort.Slice(records, func(i, j int) bool {
		return records[i].ExecutedAt.After(records[j].ExecutedAt)
	})

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	return records, nil
}

func (r *ExecutionRepository) StaleRunning(ctx context.Context, before time.Time) ([]*models.ExecutionRecord, error) {
	all, err := r.List(ctx, persistence.ListExecutionsOptions{})
	if err != nil {
		return nil, err
	}

	stale := make([]*models.ExecutionRecord, 0)

	for _, record := range all {
		if record.Status == models.ExecutionRunning && record.ExecutedAt.Before(before) {
			stale = append(stale, record)
		}
	}

	return stale, nil
}
