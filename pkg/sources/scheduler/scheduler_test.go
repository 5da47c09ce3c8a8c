package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence/file"
)

type captureSubmitter struct {
	mu       sync.Mutex
	payloads []models.EventPayload
}

func (c *captureSubmitter) Submit(_ models.TriggerType, payload models.EventPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payloads = append(c.payloads, payload)

	return nil
}

func (c *captureSubmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.payloads)
}

func testSource(t *testing.T) (*Source, *captureSubmitter, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	submitter := &captureSubmitter{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return NewSource(store.Workflows(), submitter, logger), submitter, store
}

func scheduledWorkflow(id, schedule string) *models.Workflow {
	return &models.Workflow{
		ID:       id,
		Name:     "Weekly digest " + id,
		Trigger:  models.TriggerSpec{Type: models.TriggerScheduledTime, Schedule: schedule},
		IsActive: true,
	}
}

func TestStart_RegistersActiveSchedules(t *testing.T) {
	source, _, store := testSource(t)
	ctx := context.Background()

	require.NoError(t, store.Workflows().Save(ctx, scheduledWorkflow("wf-digest", "0 9 * * 1")))

	inactive := scheduledWorkflow("wf-off", "0 9 * * 1")
	inactive.IsActive = false
	require.NoError(t, store.Workflows().Save(ctx, inactive))

	require.NoError(t, source.Start(ctx))
	defer func() { require.NoError(t, source.Stop(ctx)) }()

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Len(t, source.entries, 1)
	assert.Contains(t, source.entries, "wf-digest")
}

func TestStart_SkipsInvalidCronExpression(t *testing.T) {
	source, _, store := testSource(t)
	ctx := context.Background()

	require.NoError(t, store.Workflows().Save(ctx, scheduledWorkflow("wf-bad", "not a cron")))
	require.NoError(t, store.Workflows().Save(ctx, scheduledWorkflow("wf-empty", "")))

	require.NoError(t, source.Start(ctx))
	defer func() { require.NoError(t, source.Stop(ctx)) }()

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Empty(t, source.entries)
}

func TestFire_SubmitsWorkflowPayload(t *testing.T) {
	source, submitter, _ := testSource(t)

	source.fire("wf-digest")()

	require.Equal(t, 1, submitter.count())

	payload := submitter.payloads[0]
	assert.Equal(t, "wf-digest", payload["workflow_id"])
	assert.NotEmpty(t, payload["scheduled_at"])
}

func TestReload_RemovesDeletedWorkflows(t *testing.T) {
	source, _, store := testSource(t)
	ctx := context.Background()

	require.NoError(t, store.Workflows().Save(ctx, scheduledWorkflow("wf-digest", "0 9 * * 1")))
	require.NoError(t, source.Start(ctx))

	defer func() { require.NoError(t, source.Stop(ctx)) }()

	require.NoError(t, store.Workflows().Delete(ctx, "wf-digest"))

	source.mu.Lock()
	require.NoError(t, source.reload(ctx))
	assert.Empty(t, source.entries)
	source.mu.Unlock()
}

func TestStart_TicksSubmitEvents(t *testing.T) {
	source, submitter, store := testSource(t)
	ctx := context.Background()

	require.NoError(t, store.Workflows().Save(ctx, scheduledWorkflow("wf-fast", "@every 100ms")))
	require.NoError(t, source.Start(ctx))

	defer func() { require.NoError(t, source.Stop(ctx)) }()

	require.Eventually(t, func() bool { return submitter.count() >= 1 }, 2*time.Second, 20*time.Millisecond)
}
