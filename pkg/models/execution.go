package models

import "time"

// ExecutionStatus is the lifecycle state of one engine run.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Terminal reports whether s is a terminal status.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// ExecutionRecord is the audit row for one engine run. It is created in the
// running state before any action executes and transitions exactly once to a
// terminal status. TriggerPayload snapshots the event data at firing time.
type ExecutionRecord struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	WorkflowName    string          `json:"workflow_name"`
	TriggerType     TriggerType     `json:"trigger_type"`
	TriggerPayload  EventPayload    `json:"trigger_payload"`
	Status          ExecutionStatus `json:"status"`
	ActionsExecuted int             `json:"actions_executed"`
	Errors          []string        `json:"errors,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	ExecutedAt      time.Time       `json:"executed_at"`
	Duration        time.Duration   `json:"duration"`
}

// ExecutionOutcome carries the terminal state applied to a running record.
type ExecutionOutcome struct {
	Status          ExecutionStatus `json:"status"`
	ActionsExecuted int             `json:"actions_executed"`
	Errors          []string        `json:"errors,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	Duration        time.Duration   `json:"duration"`
}
