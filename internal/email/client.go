package email

import (
	"context"
	"fmt"
	"sync"

	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/time/rate"
)

// Sender delivers emails for send_email actions and invoice reminders
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// SendgridSender sends through the SendGrid v3 API, throttled by a token bucket
type SendgridSender struct {
	client   *sendgrid.Client
	from     *mail.Email
	limiter  *rate.Limiter
	logger   *logger.Logger
	disabled bool
}

// NewSender builds the configured sender with transient failures retried. Without an API key
// emails are logged and skipped.
func NewSender(cfg *config.Configuration, logger *logger.Logger) Sender {
	return NewRetryingSender(newSendgridSender(cfg, logger), cfg.Email, logger)
}

func newSendgridSender(cfg *config.Configuration, logger *logger.Logger) *SendgridSender {
	limit := rate.Limit(cfg.Email.RateLimit)
	if cfg.Email.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Email.RateBurst
	if burst < 1 {
		burst = 1
	}

	s := &SendgridSender{
		from:    mail.NewEmail(cfg.Email.FromName, cfg.Email.FromAddress),
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	if !cfg.Email.Enabled || cfg.Email.SendgridAPIKey == "" {
		s.disabled = true
		return s
	}
	s.client = sendgrid.NewSendClient(cfg.Email.SendgridAPIKey)
	return s
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if s.disabled {
		s.logger.Warnw("email sending is disabled, skipping email",
			"to", msg.ToAddress,
			"subject", msg.Subject,
		)
		return &SendResult{Skipped: true}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Email rate limit wait was interrupted").
			Mark(ierr.ErrTransient)
	}

	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	m := mail.NewSingleEmail(s.from, msg.Subject, to, msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to reach the email provider").
			Mark(ierr.ErrTransient)
	}
	if resp.StatusCode >= 400 {
		err := ierr.NewErrorf("email provider returned status %d", resp.StatusCode).
			WithHintf("Email provider rejected the message: %s", resp.Body).
			WithReportableDetails(map[string]any{
				"status_code": resp.StatusCode,
			})
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			return nil, err.Mark(ierr.ErrTransient)
		}
		return nil, err.Mark(ierr.ErrHTTPClient)
	}

	var messageID string
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}

	s.logger.Infow("email sent successfully",
		"message_id", messageID,
		"to", msg.ToAddress,
		"subject", msg.Subject,
	)
	return &SendResult{MessageID: messageID}, nil
}

// CapturingSender records messages instead of sending them. Tests and dry runs use it.
type CapturingSender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (c *CapturingSender) Send(_ context.Context, msg Message) (*SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.messages = append(c.messages, msg)
	return &SendResult{MessageID: fmt.Sprintf("captured-%d", len(c.messages))}, nil
}

// Messages returns a copy of the captured messages
func (c *CapturingSender) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}
