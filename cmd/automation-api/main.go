package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/vantagecrm/automation/pkg/cmd"
	"github.com/vantagecrm/automation/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "automation-api",
		EnableShellCompletion: true,
		Usage:                 "Serve the automation REST API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   8080,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "gateway-url",
				Usage:   "Messaging gateway base URL for test sends (empty selects the dry-run log sender)",
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("automation-api")
			logger.InfoContext(ctx, "Initializing automation API")

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

			api := NewAPI(logger, store, provider)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
