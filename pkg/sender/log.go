package sender

import (
	"context"
	"log/slog"
)

// LogSender writes deliveries to the log instead of a provider. It backs
// local development and the worker's dry-run mode.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "log_sender")}
}

func (s *LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "Email delivery (dry run)", "to", to, "subject", subject, "bytes", len(body))

	return nil
}

func (s *LogSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.InfoContext(ctx, "SMS delivery (dry run)", "to", to, "bytes", len(body))

	return nil
}
