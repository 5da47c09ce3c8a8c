// Package persistence provides the data storage abstraction the engine reads
// workflows and templates from and writes execution history to.
package persistence

import (
	"context"
	"time"

	"github.com/vantagecrm/automation/pkg/models"
)

// Persistence bundles the repositories one storage backend provides.
type Persistence interface {
	Workflows() WorkflowRepository
	Templates() TemplateRepository
	Executions() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository reads and writes workflow definitions. The engine only
// reads; writes come from the authoring surface.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// ActiveByTrigger returns active workflows whose trigger type matches.
	ActiveByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository reads and writes message templates.
type TemplateRepository interface {
	List(ctx context.Context) ([]*models.Template, error)
	GetByID(ctx context.Context, id string) (*models.Template, error)
	Save(ctx context.Context, template *models.Template) error
	Delete(ctx context.Context, id string) error
}

// ListExecutionsOptions filters execution history reads.
type ListExecutionsOptions struct {
	WorkflowID string
	Limit      int
}

// ExecutionRepository is append/update-only: records are created once in the
// running state and updated once with their terminal outcome. Records are
// keyed by id so concurrent workers never contend on the same row.
type ExecutionRepository interface {
	Create(ctx context.Context, record *models.ExecutionRecord) error
	// UpdateOutcome applies the terminal outcome to a running record.
	UpdateOutcome(ctx context.Context, id string, outcome models.ExecutionOutcome) error
	GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	List(ctx context.Context, opts ListExecutionsOptions) ([]*models.ExecutionRecord, error)
	// StaleRunning returns records still running that started before the
	// cutoff, for the reconciliation sweep.
	StaleRunning(ctx context.Context, before time.Time) ([]*models.ExecutionRecord, error)
}
