// Package models defines the core domain models for the CRM workflow
// automation engine.
package models

import "time"

// Workflow binds a trigger to an ordered sequence of actions. The action
// order is execution order. Inactive workflows are never matched. A workflow
// with zero actions is still a valid match and records a no-op execution.
type Workflow struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"        validate:"required,min=3"`
	Description string            `json:"description"`
	Trigger     TriggerSpec       `json:"trigger"     validate:"required"`
	Actions     []Action          `json:"actions"`
	Variables   map[string]string `json:"variables,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
