package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/vantagecrm/automation/pkg/cmd"
	"github.com/vantagecrm/automation/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "automation-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume CRM trigger events and execute matching workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "gateway-url",
				Usage:   "Messaging gateway base URL (empty selects the dry-run log sender)",
				Value:   "",
				Sources: cli.EnvVars("GATEWAY_URL"),
			},
			&cli.StringFlag{
				Name:    "gateway-api-key",
				Usage:   "Messaging gateway API key",
				Value:   "",
				Sources: cli.EnvVars("GATEWAY_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the queue source (empty disables it)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-queue",
				Usage:   "Redis list the queue source consumes",
				Value:   "automation:events",
				Sources: cli.EnvVars("REDIS_QUEUE"),
			},
			&cli.IntFlag{
				Name:    "queue-size",
				Usage:   "Dispatch queue capacity",
				Value:   1024,
				Sources: cli.EnvVars("QUEUE_SIZE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of dispatch workers",
				Value:   8,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.DurationFlag{
				Name:    "reconcile-horizon",
				Usage:   "Age after which running execution records are failed by the reconciliation sweep",
				Value:   10 * time.Minute,
				Sources: cli.EnvVars("RECONCILE_HORIZON"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("automation-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing automation worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "automation-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			provider := cmd.NewSender(command.String("gateway-url"), command.String("gateway-api-key"), logger)

			worker := NewWorkerManager(workerID, WorkerConfig{
				QueueSize:        command.Int("queue-size"),
				Workers:          command.Int("workers"),
				ReconcileHorizon: command.Duration("reconcile-horizon"),
				RedisAddr:        command.String("redis-addr"),
				RedisQueue:       command.String("redis-queue"),
			}, store, eventBus, provider, logger)

			return worker.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
