// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/vantagecrm/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree:
// one JSON file per entity under workflows/, templates/ and executions/.
type Persistence struct {
	root       string
	workflows  *WorkflowRepository
	templates  *TemplateRepository
	executions *ExecutionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		workflows:  NewWorkflowRepository(cleanRoot),
		templates:  NewTemplateRepository(cleanRoot),
		executions: NewExecutionRepository(cleanRoot),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Templates() persistence.TemplateRepository {
	return p.templates
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
