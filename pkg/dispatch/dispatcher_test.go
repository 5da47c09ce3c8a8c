package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/recorder"
)

type stubEngine struct {
	mu    sync.Mutex
	calls []models.EventPayload
	errs  []error
}

func (e *stubEngine) Trigger(_ context.Context, _ models.TriggerType, payload models.EventPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, payload)

	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]

		return err
	}

	return nil
}

func (e *stubEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestSubmit_FailsFastWhenQueueFull(t *testing.T) {
	engine := &stubEngine{}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 2, Workers: 1}, testLogger())

	// Workers not started, so the queue only drains on capacity.
	require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 1}))
	require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 2}))

	err := dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 3})
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestSubmit_AfterCloseReturnsErrClosed(t *testing.T) {
	engine := &stubEngine{}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 2, Workers: 1}, testLogger())

	dispatcher.Start(context.Background())
	dispatcher.Close()

	err := dispatcher.Submit(models.TriggerManual, models.EventPayload{})
	require.ErrorIs(t, err, ErrClosed)
}

func TestClose_DrainsQueuedEvents(t *testing.T) {
	engine := &stubEngine{}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 16, Workers: 2}, testLogger())

	dispatcher.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": i}))
	}

	dispatcher.Close()

	assert.Equal(t, 10, engine.callCount())
}

func TestRun_RequeuesOnceOnBeginRecordFailure(t *testing.T) {
	engine := &stubEngine{
		errs: []error{
			fmt.Errorf("workflow wf-1: %w", recorder.ErrBeginRecord),
		},
	}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 4, Workers: 1}, testLogger())

	dispatcher.Start(context.Background())
	require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 1}))

	// First attempt failed with a record-store error, the retry succeeded.
	require.Eventually(t, func() bool { return engine.callCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	dispatcher.Close()

	assert.Equal(t, 2, engine.callCount())
}

func TestRun_DropsEventAfterSecondBeginRecordFailure(t *testing.T) {
	engine := &stubEngine{
		errs: []error{
			fmt.Errorf("workflow wf-1: %w", recorder.ErrBeginRecord),
			fmt.Errorf("workflow wf-1: %w", recorder.ErrBeginRecord),
		},
	}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 4, Workers: 1}, testLogger())

	dispatcher.Start(context.Background())
	require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 1}))

	// Both attempts hit the record-store failure; the event is dropped, not
	// requeued a second time.
	require.Eventually(t, func() bool { return engine.callCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	dispatcher.Close()

	assert.Equal(t, 2, engine.callCount())
}

func TestRun_NonRecordErrorsAreNotRequeued(t *testing.T) {
	engine := &stubEngine{
		errs: []error{errors.New("payload rejected")},
	}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 4, Workers: 1}, testLogger())

	dispatcher.Start(context.Background())
	require.NoError(t, dispatcher.Submit(models.TriggerManual, models.EventPayload{"n": 1}))
	dispatcher.Close()

	assert.Equal(t, 1, engine.callCount())
}

func TestWork_StopsOnContextCancel(t *testing.T) {
	engine := &stubEngine{}
	dispatcher := NewDispatcher(engine, Config{QueueSize: 4, Workers: 2}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	cancel()

	done := make(chan struct{})

	go func() {
		dispatcher.running.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after context cancellation")
	}
}
