package sender

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError("test", errors.New("connection reset"))))
	assert.False(t, IsTransient(NewPermanentError("test", errors.New("invalid recipient"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	assert.False(t, IsTransient(errors.New("template not found")))
}

func TestSendError_Message(t *testing.T) {
	err := &SendError{Provider: "httpapi", StatusCode: 503, Transient: true, Err: errors.New("gateway returned 503")}
	assert.Contains(t, err.Error(), "transient")
	assert.Contains(t, err.Error(), "503")

	permanent := NewPermanentError("httpapi", errors.New("bad address"))
	assert.Contains(t, permanent.Error(), "permanent")
}
