package email

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
)

// RetryingSender retries transient failures of the wrapped sender with exponential backoff.
// Any other error is returned after the first attempt.
type RetryingSender struct {
	next         Sender
	maxAttempts  int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	logger       *logger.Logger
}

func NewRetryingSender(next Sender, cfg config.EmailConfig, logger *logger.Logger) *RetryingSender {
	return &RetryingSender{
		next:         next,
		maxAttempts:  max(cfg.MaxAttempts, 1),
		retryWaitMin: cfg.RetryWaitMin,
		retryWaitMax: cfg.RetryWaitMax,
		logger:       logger,
	}
}

func (s *RetryingSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	b := backoff.NewExponentialBackOff()
	if s.retryWaitMin > 0 {
		b.InitialInterval = s.retryWaitMin
	}
	if s.retryWaitMax > 0 {
		b.MaxInterval = s.retryWaitMax
	}

	attempt := 0
	operation := func() (*SendResult, error) {
		attempt++
		result, err := s.next.Send(ctx, msg)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ierr.ErrTransient) {
			return nil, backoff.Permanent(err)
		}
		if attempt < s.maxAttempts {
			s.logger.Warnw("retrying email after transient failure",
				"attempt", attempt,
				"to", msg.ToAddress,
				"subject", msg.Subject,
				"error", err,
			)
		}
		return nil, err
	}

	result, err := backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxAttempts-1)), ctx))
	if err != nil {
		s.logger.Errorw("email could not be sent",
			"attempts", attempt,
			"to", msg.ToAddress,
			"subject", msg.Subject,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}
