package email

import (
	"context"
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySender struct {
	failures int
	err      error
	calls    int
}

func (f *flakySender) Send(_ context.Context, msg Message) (*SendResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &SendResult{MessageID: "msg-1"}, nil
}

func retryConfig(attempts int) config.EmailConfig {
	return config.EmailConfig{
		MaxAttempts:  attempts,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	}
}

var testMessage = Message{ToAddress: "billing@example.com", Subject: "Invoice", Text: "body"}

func TestRetryingSenderRetriesTransientFailures(t *testing.T) {
	next := &flakySender{
		failures: 2,
		err:      ierr.NewError("sendgrid unavailable").Mark(ierr.ErrTransient),
	}
	sender := NewRetryingSender(next, retryConfig(3), logger.NewNopLogger())

	result, err := sender.Send(context.Background(), testMessage)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", result.MessageID)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingSenderStopsAtMaxAttempts(t *testing.T) {
	next := &flakySender{
		failures: 10,
		err:      ierr.NewError("sendgrid unavailable").Mark(ierr.ErrTransient),
	}
	sender := NewRetryingSender(next, retryConfig(3), logger.NewNopLogger())

	_, err := sender.Send(context.Background(), testMessage)
	require.Error(t, err)
	assert.True(t, ierr.IsTransient(err))
	assert.Equal(t, 3, next.calls)
}

func TestRetryingSenderDoesNotRetryRejections(t *testing.T) {
	next := &flakySender{
		failures: 10,
		err:      ierr.NewError("sendgrid rejected message").Mark(ierr.ErrHTTPClient),
	}
	sender := NewRetryingSender(next, retryConfig(3), logger.NewNopLogger())

	_, err := sender.Send(context.Background(), testMessage)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingSenderHonorsCancellation(t *testing.T) {
	next := &flakySender{
		failures: 10,
		err:      ierr.NewError("sendgrid unavailable").Mark(ierr.ErrTransient),
	}
	sender := NewRetryingSender(next, retryConfig(5), logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sender.Send(ctx, testMessage)
	require.Error(t, err)
	assert.LessOrEqual(t, next.calls, 1)
}
