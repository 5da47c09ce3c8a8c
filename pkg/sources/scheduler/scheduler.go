// Package scheduler fires scheduled_time trigger events from workflow cron
// expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// Submitter receives the trigger events the scheduler fires. The dispatcher
// implements it.
type Submitter interface {
	Submit(triggerType models.TriggerType, payload models.EventPayload) error
}

const defaultReloadInterval = time.Minute

// Source runs one cron entry per active scheduled_time workflow and submits
// a trigger event on each tick. Workflow definitions are reloaded
// periodically so schedule edits take effect without a restart.
type Source struct {
	workflows      persistence.WorkflowRepository
	submitter      Submitter
	logger         *slog.Logger
	reloadInterval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID // workflow ID -> cron entry
	done    chan struct{}
	started bool
}

func NewSource(workflows persistence.WorkflowRepository, submitter Submitter, logger *slog.Logger) *Source {
	return &Source{
		workflows:      workflows,
		submitter:      submitter,
		logger:         logger.With("module", "scheduler_source"),
		reloadInterval: defaultReloadInterval,
		cron:           cron.New(),
		entries:        make(map[string]cron.EntryID),
	}
}

// Start loads schedules, starts the cron runner and the reload loop.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	err := s.reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled workflows: %w", err)
	}

	s.cron.Start()
	s.done = make(chan struct{})
	s.started = true

	go s.reloadLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler source started", "schedules", len(s.entries))

	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	close(s.done)
	<-s.cron.Stop().Done()
	s.started = false

	s.logger.InfoContext(ctx, "Scheduler source stopped")

	return nil
}

func (s *Source) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()

			err := s.reload(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to reload scheduled workflows", "error", err)
			}

			s.mu.Unlock()
		}
	}
}

// reload syncs cron entries with the current set of active scheduled_time
// workflows. Caller holds the mutex.
func (s *Source) reload(ctx context.Context) error {
	workflows, err := s.workflows.ActiveByTrigger(ctx, models.TriggerScheduledTime)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		seen[workflow.ID] = true

		if _, registered := s.entries[workflow.ID]; registered {
			continue
		}

		if workflow.Trigger.Schedule == "" {
			s.logger.WarnContext(ctx, "Scheduled workflow has no cron expression", "workflow_id", workflow.ID)

			continue
		}

		entryID, err := s.cron.AddFunc(workflow.Trigger.Schedule, s.fire(workflow.ID))
		if err != nil {
			s.logger.ErrorContext(ctx, "Invalid cron expression",
				"workflow_id", workflow.ID,
				"schedule", workflow.Trigger.Schedule,
				"error", err,
			)

			continue
		}

		s.entries[workflow.ID] = entryID
		s.logger.InfoContext(ctx, "Registered schedule", "workflow_id", workflow.ID, "schedule", workflow.Trigger.Schedule)
	}

	for workflowID, entryID := range s.entries {
		if !seen[workflowID] {
			s.cron.Remove(entryID)
			delete(s.entries, workflowID)
			s.logger.InfoContext(ctx, "Removed schedule", "workflow_id", workflowID)
		}
	}

	return nil
}

func (s *Source) fire(workflowID string) func() {
	return func() {
		payload := models.EventPayload{
			"workflow_id":  workflowID,
			"scheduled_at": time.Now().UTC().Format(time.RFC3339),
		}

		err := s.submitter.Submit(models.TriggerScheduledTime, payload)
		if err != nil {
			s.logger.Error("Failed to submit scheduled trigger", "workflow_id", workflowID, "error", err)
		}
	}
}
