package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	workflow := &models.Workflow{
		ID:   "wf-1",
		Name: "Win notice",
		Trigger: models.TriggerSpec{
			Type: models.TriggerSaleWon,
			Conditions: []models.Condition{
				{Field: "value", Operator: models.OperatorGreaterEqual, Value: 50000},
			},
		},
		Actions: []models.Action{
			{Kind: models.ActionEmail, TemplateID: "win-notice", RecipientExpr: "customer.email"},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.Workflows().Save(ctx, workflow))

	loaded, err := store.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, models.TriggerSaleWon, loaded.Trigger.Type)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionEmail, loaded.Actions[0].Kind)
}

func TestWorkflowRepository_ActiveByTrigger(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	save := func(id string, triggerType models.TriggerType, active bool) {
		require.NoError(t, store.Workflows().Save(ctx, &models.Workflow{
			ID:       id,
			Name:     "wf " + id,
			Trigger:  models.TriggerSpec{Type: triggerType},
			IsActive: active,
		}))
	}

	save("a", models.TriggerSaleWon, true)
	save("b", models.TriggerSaleWon, false)
	save("c", models.TriggerTaskCompleted, true)

	matching, err := store.Workflows().ActiveByTrigger(ctx, models.TriggerSaleWon)
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, "a", matching[0].ID)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	store := NewPersistence(t.TempDir())

	_, err := store.Workflows().GetByID(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestTemplateRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	tmpl := &models.Template{
		ID:      "win-notice",
		Name:    "Win notice",
		Subject: "Deal won: {{customer.name}}",
		Body:    "Value: {{value}}",
	}

	require.NoError(t, store.Templates().Save(ctx, tmpl))

	loaded, err := store.Templates().GetByID(ctx, "win-notice")
	require.NoError(t, err)
	assert.Equal(t, tmpl.Subject, loaded.Subject)

	_, err = store.Templates().GetByID(ctx, "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestExecutionRepository_OutcomeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	record := &models.ExecutionRecord{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		TriggerType: models.TriggerSaleWon,
		Status:      models.ExecutionRunning,
		ExecutedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Executions().Create(ctx, record))

	outcome := models.ExecutionOutcome{
		Status:          models.ExecutionCompleted,
		ActionsExecuted: 1,
		Duration:        42 * time.Millisecond,
	}
	require.NoError(t, store.Executions().UpdateOutcome(ctx, "exec-1", outcome))

	loaded, err := store.Executions().GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, loaded.Status)
	assert.Equal(t, 1, loaded.ActionsExecuted)

	// A second terminal transition is rejected.
	err = store.Executions().UpdateOutcome(ctx, "exec-1", outcome)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyTerminal)
}

func TestExecutionRepository_ListFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	base := time.Now().UTC()
	for i, workflowID := range []string{"wf-1", "wf-2", "wf-1"} {
		require.NoError(t, store.Executions().Create(ctx, &models.ExecutionRecord{
			ID:         "exec-" + string(rune('a'+i)),
			WorkflowID: workflowID,
			Status:     models.ExecutionCompleted,
			ExecutedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := store.Executions().List(ctx, persistence.ListExecutionsOptions{WorkflowID: "wf-1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "exec-c", records[0].ID)

	limited, err := store.Executions().List(ctx, persistence.ListExecutionsOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestExecutionRepository_StaleRunning(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Executions().Create(ctx, &models.ExecutionRecord{
		ID: "stuck", Status: models.ExecutionRunning, ExecutedAt: old,
	}))
	require.NoError(t, store.Executions().Create(ctx, &models.ExecutionRecord{
		ID: "fresh", Status: models.ExecutionRunning, ExecutedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Executions().Create(ctx, &models.ExecutionRecord{
		ID: "done", Status: models.ExecutionCompleted, ExecutedAt: old,
	}))

	stale, err := store.Executions().StaleRunning(ctx, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stuck", stale[0].ID)
}
