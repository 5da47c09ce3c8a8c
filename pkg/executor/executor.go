// Package executor performs a single workflow action: template resolution,
// rendering, recipient resolution and the provider send with timeout and
// retry.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/sender"
	"github.com/vantagecrm/automation/pkg/template"
)

// Config bounds one action execution. MaxRetries counts additional attempts
// after the first; backoff doubles per attempt from BackoffBase.
type Config struct {
	SendTimeout   time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffFactor int
}

// DefaultConfig returns the production defaults: 10s per provider call, two
// retries with 500ms/1s backoff.
func DefaultConfig() Config {
	return Config{
		SendTimeout:   10 * time.Second,
		MaxRetries:    2,
		BackoffBase:   500 * time.Millisecond,
		BackoffFactor: 2,
	}
}

// ActionStatus is the terminal state of one action execution.
type ActionStatus string

const (
	ActionSent   ActionStatus = "sent"
	ActionFailed ActionStatus = "failed"
)

// ActionResult is always a value: no failure escapes the executor as an
// error, so the engine can continue with subsequent actions.
type ActionResult struct {
	Status   ActionStatus
	Reason   string
	Warnings []string
	Attempts int
}

func sent(attempts int, warnings []string) ActionResult {
	return ActionResult{Status: ActionSent, Attempts: attempts, Warnings: warnings}
}

func failed(reason string, attempts int, warnings []string) ActionResult {
	return ActionResult{Status: ActionFailed, Reason: reason, Attempts: attempts, Warnings: warnings}
}

// Executor resolves and delivers one action through the sender capability.
type Executor struct {
	templates persistence.TemplateRepository
	provider  sender.Sender
	config    Config
	logger    *slog.Logger
}

func NewExecutor(templates persistence.TemplateRepository, provider sender.Sender, config Config, logger *slog.Logger) *Executor {
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultConfig().SendTimeout
	}

	if config.BackoffFactor <= 0 {
		config.BackoffFactor = DefaultConfig().BackoffFactor
	}

	return &Executor{
		templates: templates,
		provider:  provider,
		config:    config,
		logger:    logger.With("module", "action_executor"),
	}
}

// Execute renders the action's template against the event payload merged
// with the workflow's static variables, resolves the recipient and sends.
// Transient provider failures are retried with exponential backoff;
// permanent failures (unknown template, unresolvable recipient, provider
// 4xx) fail immediately.
func (e *Executor) Execute(ctx context.Context, action models.Action, payload models.EventPayload, staticVars map[string]string) ActionResult {
	tmpl, err := e.templates.GetByID(ctx, action.TemplateID)
	if err != nil {
		return failed(fmt.Sprintf("template %s: %v", action.TemplateID, err), 0, nil)
	}

	variables := make(map[string]string, len(staticVars))
	for name, value := range staticVars {
		variables[name] = value
	}
	// Payload fields shadow workflow statics.
	for name, value := range payload.Flatten() {
		variables[name] = value
	}

	rendered := template.Render(tmpl, variables)

	recipient, ok := payload.LookupString(action.RecipientExpr)
	if !ok || recipient == "" {
		return failed(fmt.Sprintf("recipient %q not resolvable from payload", action.RecipientExpr), 0, rendered.Warnings)
	}

	return e.deliver(ctx, action.Kind, recipient, rendered)
}

func (e *Executor) deliver(ctx context.Context, kind models.ActionKind, recipient string, rendered template.Rendered) ActionResult {
	delay := e.config.BackoffBase

	for attempt := 1; ; attempt++ {
		err := e.send(ctx, kind, recipient, rendered)
		if err == nil {
			return sent(attempt, rendered.Warnings)
		}

		if !sender.IsTransient(err) {
			return failed(err.Error(), attempt, rendered.Warnings)
		}

		if attempt > e.config.MaxRetries {
			return failed(err.Error(), attempt, rendered.Warnings)
		}

		e.logger.WarnContext(ctx, "Transient send failure, backing off",
			"kind", kind,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return failed(fmt.Sprintf("cancelled while backing off: %v", ctx.Err()), attempt, rendered.Warnings)
		case <-time.After(delay):
		}

		delay *= time.Duration(e.config.BackoffFactor)
	}
}

func (e *Executor) send(ctx context.Context, kind models.ActionKind, recipient string, rendered template.Rendered) error {
	sendCtx, cancel := context.WithTimeout(ctx, e.config.SendTimeout)
	defer cancel()

	switch kind {
	case models.ActionEmail:
		return e.provider.SendEmail(sendCtx, recipient, rendered.Subject, rendered.Body)
	case models.ActionSMS:
		return e.provider.SendSMS(sendCtx, recipient, rendered.Body)
	}

	return sender.NewPermanentError("executor", fmt.Errorf("unknown action kind %q", kind))
}
