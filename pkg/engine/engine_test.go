package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/conditions"
	"github.com/vantagecrm/automation/pkg/executor"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/persistence/file"
	"github.com/vantagecrm/automation/pkg/recorder"
	"github.com/vantagecrm/automation/pkg/sender"
)

// scriptedSender fails for recipients listed in failures and records calls.
type scriptedSender struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []string
}

func (s *scriptedSender) deliver(to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[to]; ok {
		return err
	}

	s.sent = append(s.sent, to)

	return nil
}

func (s *scriptedSender) SendEmail(_ context.Context, to, _, _ string) error {
	return s.deliver(to)
}

func (s *scriptedSender) SendSMS(_ context.Context, to, _ string) error {
	return s.deliver(to)
}

type fixture struct {
	engine *Engine
	store  persistence.Persistence
	sender *scriptedSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	require.NoError(t, store.Templates().Save(ctx, &models.Template{
		ID:      "win-notice",
		Name:    "Win notice",
		Subject: "Deal won",
		Body:    "Value {{value}}",
	}))

	provider := &scriptedSender{failures: map[string]error{}}

	config := executor.Config{
		SendTimeout:   time.Second,
		MaxRetries:    0,
		BackoffBase:   time.Millisecond,
		BackoffFactor: 2,
	}
	actionExecutor := executor.NewExecutor(store.Templates(), provider, config, logger)
	executionRecorder := recorder.NewRecorder(store.Executions(), logger)
	evaluator := conditions.NewEvaluator(logger)

	return &fixture{
		engine: New(store.Workflows(), evaluator, actionExecutor, executionRecorder, logger),
		store:  store,
		sender: provider,
	}
}

func (f *fixture) saveWorkflow(t *testing.T, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, f.store.Workflows().Save(context.Background(), workflow))
}

func (f *fixture) records(t *testing.T, workflowID string) []*models.ExecutionRecord {
	t.Helper()

	records, err := f.store.Executions().List(context.Background(), persistence.ListExecutionsOptions{WorkflowID: workflowID})
	require.NoError(t, err)

	return records
}

func winWorkflow(actions ...models.Action) *models.Workflow {
	return &models.Workflow{
		ID:   "wf-win",
		Name: "Big win notice",
		Trigger: models.TriggerSpec{
			Type: models.TriggerSaleWon,
			Conditions: []models.Condition{
				{Field: "value", Operator: models.OperatorGreaterEqual, Value: 50000},
			},
		},
		Actions:  actions,
		IsActive: true,
	}
}

func emailTo(expr string) models.Action {
	return models.Action{Kind: models.ActionEmail, TemplateID: "win-notice", RecipientExpr: expr}
}

func salePayload(value float64) models.EventPayload {
	return models.EventPayload{
		"value":    value,
		"customer": map[string]any{"email": "a@x.com"},
	}
}

func TestTrigger_MatchingWorkflowCompletes(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000))
	require.NoError(t, err)

	records := f.records(t, "wf-win")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionCompleted, records[0].Status)
	assert.Equal(t, 1, records[0].ActionsExecuted)
	assert.Empty(t, records[0].Errors)
	assert.Equal(t, models.TriggerSaleWon, records[0].TriggerType)
	assert.InDelta(t, 75000.0, records[0].TriggerPayload["value"], 0.001)
}

func TestTrigger_NonMatchingConditionCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(10000))
	require.NoError(t, err)

	assert.Empty(t, f.records(t, "wf-win"))
	assert.Empty(t, f.sender.sent)
}

func TestTrigger_InactiveWorkflowNeverFires(t *testing.T) {
	f := newFixture(t)

	workflow := winWorkflow(emailTo("customer.email"))
	workflow.IsActive = false
	f.saveWorkflow(t, workflow)

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000))
	require.NoError(t, err)

	assert.Empty(t, f.records(t, "wf-win"))
}

func TestTrigger_PartialFailureContinuesAndCompletes(t *testing.T) {
	f := newFixture(t)

	workflow := winWorkflow(
		emailTo("customer.email"),
		emailTo("bad.recipient"),
		emailTo("second.email"),
	)
	f.saveWorkflow(t, workflow)

	payload := models.EventPayload{
		"value":    60000.0,
		"customer": map[string]any{"email": "a@x.com"},
		"second":   map[string]any{"email": "b@x.com"},
	}

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, payload)
	require.NoError(t, err)

	records := f.records(t, "wf-win")
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, models.ExecutionCompleted, record.Status)
	assert.Equal(t, 2, record.ActionsExecuted)
	require.Len(t, record.Errors, 1)
	assert.Contains(t, record.Errors[0], "action 1")

	// Actions after the failed one still executed.
	assert.Equal(t, record.ActionsExecuted+len(record.Errors), len(workflow.Actions))
	assert.Contains(t, f.sender.sent, "b@x.com")
}

func TestTrigger_AllActionsFailedRecordsFailed(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))
	f.sender.failures["a@x.com"] = sender.NewPermanentError("test", errors.New("mailbox full"))

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000))
	require.NoError(t, err)

	records := f.records(t, "wf-win")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionFailed, records[0].Status)
	assert.Zero(t, records[0].ActionsExecuted)
	assert.NotEmpty(t, records[0].Errors)
}

func TestTrigger_ZeroActionWorkflowRecordsNoOpCompletion(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow())

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000))
	require.NoError(t, err)

	records := f.records(t, "wf-win")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionCompleted, records[0].Status)
	assert.Zero(t, records[0].ActionsExecuted)
	assert.Empty(t, records[0].Errors)
}

func TestTrigger_RecordAlwaysTerminal(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))
	f.sender.failures["a@x.com"] = sender.NewPermanentError("test", errors.New("rejected"))

	require.NoError(t, f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000)))

	for _, record := range f.records(t, "wf-win") {
		assert.True(t, record.Status.Terminal(), "record %s left in status %s", record.ID, record.Status)
	}
}

func TestTrigger_ConcurrentWorkflowsForSameEvent(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))

	second := winWorkflow(emailTo("customer.email"))
	second.ID = "wf-win-2"
	second.Trigger.Conditions = nil
	f.saveWorkflow(t, second)

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(90000))
	require.NoError(t, err)

	assert.Len(t, f.records(t, "wf-win"), 1)
	assert.Len(t, f.records(t, "wf-win-2"), 1)
	assert.Len(t, f.sender.sent, 2)
}

func TestTrigger_InvalidPayloadRejectedAtBoundary(t *testing.T) {
	f := newFixture(t)
	f.saveWorkflow(t, winWorkflow(emailTo("customer.email")))

	err := f.engine.Trigger(context.Background(), models.TriggerSaleWon, models.EventPayload{"customer": map[string]any{}})

	var payloadErr *models.PayloadError

	require.ErrorAs(t, err, &payloadErr)
	assert.Empty(t, f.records(t, "wf-win"))
}

func TestTrigger_RenderWarningsRecorded(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.Templates().Save(context.Background(), &models.Template{
		ID:   "greet",
		Name: "Greeting",
		Body: "Hi {{name}}",
	}))

	workflow := winWorkflow(models.Action{Kind: models.ActionEmail, TemplateID: "greet", RecipientExpr: "customer.email"})
	f.saveWorkflow(t, workflow)

	require.NoError(t, f.engine.Trigger(context.Background(), models.TriggerSaleWon, salePayload(75000)))

	records := f.records(t, "wf-win")
	require.Len(t, records, 1)
	assert.Equal(t, models.ExecutionCompleted, records[0].Status)
	assert.Equal(t, 1, records[0].ActionsExecuted)
	assert.NotEmpty(t, records[0].Warnings)
	assert.Empty(t, records[0].Errors)
}
