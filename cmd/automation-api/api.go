// Package main provides the automation API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/vantagecrm/automation/pkg/executor"
	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/sender"
	"github.com/vantagecrm/automation/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	provider sender.Sender
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, store persistence.Persistence, provider sender.Sender) *API {
	return &API{
		logger:   logger,
		store:    store,
		provider: provider,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	actionExecutor := executor.NewExecutor(a.store.Templates(), a.provider, executor.DefaultConfig(), a.logger)
	handlers := web.NewAPIHandlers(a.store, actionExecutor, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automation API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Get("/:id", handlers.GetWorkflow)

	t := app.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Get("/:id", handlers.GetTemplate)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)

	app.Post("/test-send", handlers.TestSend)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
