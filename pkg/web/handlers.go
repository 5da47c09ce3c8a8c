// Package web provides HTTP handlers and REST API endpoints for workflow
// management and execution history.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/vantagecrm/automation/pkg/executor"
	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

type APIHandlers struct {
	store     persistence.Persistence
	executor  *executor.Executor
	validator *validator.Validate
}

func NewAPIHandlers(store persistence.Persistence, actionExecutor *executor.Executor, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		store:     store,
		executor:  actionExecutor,
		validator: validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.Workflows().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.store.Workflows().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.store.Templates().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates": templates,
		"count":     len(templates),
	})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.store.Templates().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return notFound(c, "Template not found")
		}

		return internalError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	opts := persistence.ListExecutionsOptions{
		WorkflowID: c.Query("workflow_id"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return badRequest(c, "Invalid limit parameter")
		}

		opts.Limit = limit
	}

	records, err := h.store.Executions().List(c.Context(), opts)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": records,
		"count":      len(records),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	record, err := h.store.Executions().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return notFound(c, "Execution record not found")
		}

		return internalError(c, err)
	}

	return c.JSON(record)
}

// TestSend delivers one template to one recipient through the same action
// executor the engine uses, so operators exercise rendering, retry and
// provider classification end to end.
func (h *APIHandlers) TestSend(c fiber.Ctx) error {
	var req TestSendRequest

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	action := models.Action{
		Kind:          models.ActionKind(req.Kind),
		TemplateID:    req.TemplateID,
		RecipientExpr: "to",
	}
	payload := models.EventPayload{"to": req.To}

	result := h.executor.Execute(c.Context(), action, payload, req.Variables)

	response := TestSendResponse{
		Status:   result.Status,
		Reason:   result.Reason,
		Warnings: result.Warnings,
		Attempts: result.Attempts,
	}

	status := fiber.StatusOK
	if result.Status == executor.ActionFailed {
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(response)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	repository := "ok"

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		repository = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repository,
		},
		"timestamp": time.Now().UTC(),
	})
}
