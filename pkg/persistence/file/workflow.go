package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// WorkflowRepository stores one JSON file per workflow under workflows/.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) dir() string {
	return filepath.Join(r.root, "workflows")
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := listJSONIDs(r.dir())
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(data, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) ActiveByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.IsActive && workflow.Trigger.Type == triggerType {
			matching = append(matching, workflow)
		}
	}

	return matching, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := writeJSON(r.dir(), workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func listJSONIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		ids = append(ids, name[:len(name)-len(".json")])
	}

	return ids, nil
}

func writeJSON(dir, id string, entity any) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
}
