package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types all implementations use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution record not found")

	// ErrExecutionAlreadyTerminal indicates a terminal outcome was applied twice.
	ErrExecutionAlreadyTerminal = errors.New("execution record already terminal")
)

// StoreError wraps storage failures with the operation and entity involved.
type StoreError struct {
	Op       string // Operation being performed (e.g. "GetByID", "Save")
	Entity   string // "workflow", "template" or "execution"
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a storage error for a workflow operation.
func NewWorkflowError(op, workflowID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "workflow", EntityID: workflowID, Err: err}
}

// NewTemplateError creates a storage error for a template operation.
func NewTemplateError(op, templateID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "template", EntityID: templateID, Err: err}
}

// NewExecutionError creates a storage error for an execution record operation.
func NewExecutionError(op, recordID string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "execution", EntityID: recordID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution record was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
