// Package sender abstracts the external email/SMS providers the engine
// delivers through.
package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sender is the capability the action executor calls. Implementations wrap a
// concrete provider (SMTP relay, SMS gateway). Failures should be returned as
// *SendError so the retry policy can classify them.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// SendError is a classified delivery failure. Transient failures (network
// errors, timeouts, provider 5xx) are retried by the executor; permanent
// failures (invalid recipient, provider 4xx) are not.
type SendError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *SendError) Error() string {
	classification := "permanent"
	if e.Transient {
		classification = "transient"
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("%s send failed (%s, status %d): %v", e.Provider, classification, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s send failed (%s): %v", e.Provider, classification, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps a retryable provider failure.
func NewTransientError(provider string, err error) *SendError {
	return &SendError{Provider: provider, Transient: true, Err: err}
}

// NewPermanentError wraps a non-retryable provider failure.
func NewPermanentError(provider string, err error) *SendError {
	return &SendError{Provider: provider, Transient: false, Err: err}
}

// IsTransient reports whether a delivery error is worth retrying. Timeouts
// and deadline expiry count as transient even when the provider adapter did
// not classify them.
func IsTransient(err error) bool {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Transient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
