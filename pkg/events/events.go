// Package events defines the event types exchanged over the automation bus.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/vantagecrm/automation/pkg/models"
)

type EventType string

// Topic carries every automation event.
const Topic = "automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// TriggerFiredEvent is published by CRM event producers (and the
	// scheduler/queue sources) when a business event occurs.
	TriggerFiredEvent EventType = "automation.trigger.fired"

	// Execution outcome events let the rest of the CRM observe engine runs.
	ExecutionCompletedEvent EventType = "automation.execution.completed"
	ExecutionFailedEvent    EventType = "automation.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// TriggerFired carries one business event into the engine.
type TriggerFired struct {
	BaseEvent

	TriggerType models.TriggerType  `json:"trigger_type"`
	Payload     models.EventPayload `json:"payload,omitempty"`
}

func (e TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

// ExecutionCompleted reports a run that reached the completed status,
// including best-effort runs with partial failures.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID     string             `json:"execution_id"`
	WorkflowID      string             `json:"workflow_id"`
	TriggerType     models.TriggerType `json:"trigger_type"`
	ActionsExecuted int                `json:"actions_executed"`
	ErrorCount      int                `json:"error_count"`
	Duration        time.Duration      `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed reports a run where every action failed.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	WorkflowID  string             `json:"workflow_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
	Errors      []string           `json:"errors,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}
