// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/vantagecrm/automation/pkg/executor"

// TestSendRequest represents the request body for a manual test delivery.
type TestSendRequest struct {
	Kind       string            `json:"kind"        validate:"required,oneof=email sms"`
	TemplateID string            `json:"template_id" validate:"required"`
	To         string            `json:"to"          validate:"required"`
	Variables  map[string]string `json:"variables"`
}

// TestSendResponse reports the outcome of a manual test delivery.
type TestSendResponse struct {
	Status   executor.ActionStatus `json:"status"`
	Reason   string                `json:"reason,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
	Attempts int                   `json:"attempts"`
}
