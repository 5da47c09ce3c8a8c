package cmd

import (
	"log/slog"

	"github.com/vantagecrm/automation/pkg/sender"
	"github.com/vantagecrm/automation/pkg/sender/httpapi"
)

// NewSender wires the delivery provider. An empty gateway URL selects the
// dry-run log sender so workers can run without messaging credentials.
func NewSender(gatewayURL, apiKey string, logger *slog.Logger) sender.Sender {
	if gatewayURL == "" {
		return sender.NewLogSender(logger)
	}

	return httpapi.NewSender(gatewayURL, apiKey, logger)
}
