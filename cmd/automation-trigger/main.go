// Command automation-trigger publishes a trigger event onto the automation
// bus, for operators firing manual or test events.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/vantagecrm/automation/pkg/cmd"
	"github.com/vantagecrm/automation/pkg/events"
	"github.com/vantagecrm/automation/pkg/log"
	"github.com/vantagecrm/automation/pkg/models"
)

func main() {
	command := &cli.Command{
		Name:                  "automation-trigger",
		EnableShellCompletion: true,
		Usage:                 "Publish a trigger event to the automation bus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "Trigger type (sale_won, invoice_overdue, task_completed, scheduled_time, manual)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "payload",
				Aliases: []string{"d"},
				Usage:   "Event payload as a JSON object",
				Value:   "{}",
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, memory)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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
			logger := log.WithModule("automation-trigger")

			triggerType := models.TriggerType(command.String("type"))
			if !triggerType.Valid() {
				return fmt.Errorf("unknown trigger type %q (valid: %v)", triggerType, models.TriggerTypes())
			}

			var payload models.EventPayload

			err := json.Unmarshal([]byte(command.String("payload")), &payload)
			if err != nil {
				return fmt.Errorf("payload must be a JSON object: %w", err)
			}

			err = models.ValidatePayload(triggerType, payload)
			if err != nil {
				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "automation-trigger", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			event := events.TriggerFired{
				BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
				TriggerType: triggerType,
				Payload:     payload,
			}

			err = eventBus.Publish(ctx, string(triggerType), event)
			if err != nil {
				return fmt.Errorf("failed to publish trigger event: %w", err)
			}

			logger.InfoContext(ctx, "Trigger event published", "trigger_type", triggerType, "event_id", event.ID)

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
