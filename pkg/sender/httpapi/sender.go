// Package httpapi implements the sender capability against an HTTP JSON
// messaging gateway.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vantagecrm/automation/pkg/sender"
)

const providerName = "httpapi"

// Sender delivers email and SMS through a messaging gateway exposing
// POST {base}/email and POST {base}/sms. Gateway 5xx responses and transport
// errors classify as transient; 4xx responses as permanent.
type Sender struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewSender(baseURL, apiKey string, logger *slog.Logger) *Sender {
	return &Sender{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
		logger:  logger.With("module", "httpapi_sender"),
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type smsRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	return s.post(ctx, "/email", emailRequest{To: to, Subject: subject, Body: body})
}

func (s *Sender) SendSMS(ctx context.Context, to, body string) error {
	return s.post(ctx, "/sms", smsRequest{To: to, Body: body})
}

func (s *Sender) post(ctx context.Context, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}

	request.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return sender.NewTransientError(providerName, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()

	switch {
	case response.StatusCode < 300:
		return nil
	case response.StatusCode >= 500:
		return &sender.SendError{
			Provider:   providerName,
			StatusCode: response.StatusCode,
			Transient:  true,
			Err:        fmt.Errorf("gateway returned %s", response.Status),
		}
	default:
		return &sender.SendError{
			Provider:   providerName,
			StatusCode: response.StatusCode,
			Transient:  false,
			Err:        fmt.Errorf("gateway returned %s", response.Status),
		}
	}
}
