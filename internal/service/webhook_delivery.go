package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/httpclient"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/webhook"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// retryBatchSize caps the deliveries one retry step attempts
const retryBatchSize = 200

type attemptOutcome int

const (
	// attemptSkipped means another sender claimed the delivery or it was already finished
	attemptSkipped attemptOutcome = iota
	attemptFailed
	attemptDelivered
)

// WebhookDeliveryService sends persisted workflow webhooks and exposes their state
type WebhookDeliveryService interface {
	// AttemptDelivery makes one signed attempt and records its outcome on the delivery.
	// Only storage errors are returned.
	AttemptDelivery(ctx context.Context, deliveryID string) error
	// RetryDelivery reopens a failed or exhausted delivery and attempts it right away
	RetryDelivery(ctx context.Context, deliveryID string) (*dto.WebhookDeliveryResponse, error)
	// RetryDue attempts every pending or failed delivery whose next attempt is due
	RetryDue(ctx context.Context, now time.Time) (*dto.BatchSummary, error)
	// PruneFinished removes delivered and exhausted deliveries finished before the cutoff
	PruneFinished(ctx context.Context, before time.Time) (int64, error)
	GetDelivery(ctx context.Context, deliveryID string) (*dto.WebhookDeliveryResponse, error)
	ListDeliveries(ctx context.Context, filter *types.WebhookDeliveryFilter) (*dto.ListWebhookDeliveriesResponse, error)
}

type webhookDeliveryService struct {
	ServiceParams
}

func NewWebhookDeliveryService(params ServiceParams) WebhookDeliveryService {
	return &webhookDeliveryService{ServiceParams: params}
}

func (s *webhookDeliveryService) AttemptDelivery(ctx context.Context, deliveryID string) error {
	d, err := s.WebhookDeliveryRepo.Get(ctx, deliveryID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("webhook delivery not found, dropping message", "delivery_id", deliveryID)
			return nil
		}
		return err
	}
	_, err = s.attempt(ctx, d, time.Now().UTC())
	return err
}

// attempt claims d at now, posts it once and persists the result. A delivery claimed by
// another sender is left alone.
func (s *webhookDeliveryService) attempt(ctx context.Context, d *webhookdelivery.Delivery, now time.Time) (attemptOutcome, error) {
	if !d.IsClaimable(now) {
		return attemptSkipped, nil
	}
	claimed, err := s.WebhookDeliveryRepo.Claim(ctx, d, now, s.Config.Webhook.ClaimLease)
	if err != nil {
		return attemptSkipped, err
	}
	if !claimed {
		s.Logger.Debugw("webhook delivery claimed by another sender", "delivery_id", d.ID)
		return attemptSkipped, nil
	}

	statusCode, sendErr := s.send(ctx, d)
	finished := time.Now().UTC()
	if sendErr == nil {
		d.MarkDelivered(statusCode, finished)
	} else {
		var code *int
		if httpErr, ok := httpclient.IsHTTPError(sendErr); ok {
			code = lo.ToPtr(httpErr.StatusCode)
		}
		d.MarkFailed(code, sendErr.Error(), finished, s.Config.Webhook.RetryDelay)
	}

	// the claim holds the row, a cancelled request must not leave it in flight
	if err := s.WebhookDeliveryRepo.Update(context.WithoutCancel(ctx), d); err != nil {
		return attemptSkipped, err
	}

	if sendErr != nil {
		s.Logger.Warnw("webhook delivery attempt failed",
			"delivery_id", d.ID,
			"url", d.URL,
			"attempts", d.Attempts,
			"delivery_status", d.DeliveryStatus,
			"error", sendErr,
		)
		return attemptFailed, nil
	}
	s.Logger.Infow("webhook delivered",
		"delivery_id", d.ID,
		"url", d.URL,
		"status_code", statusCode,
		"attempts", d.Attempts,
	)
	return attemptDelivered, nil
}

// send signs the stored body with the destination secret and POSTs it
func (s *webhookDeliveryService) send(ctx context.Context, d *webhookdelivery.Delivery) (int, error) {
	secret, err := s.Encryption.Decrypt(d.Secret)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Webhook secret could not be decrypted").
			Mark(ierr.ErrSystem)
	}
	body := []byte(d.Payload)

	headers := make(map[string]string, len(d.Headers)+3)
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[types.WebhookHeaderSignature] = webhook.Sign(secret, body)
	headers[types.WebhookHeaderEvent] = string(d.EventType)
	headers[types.WebhookHeaderDelivery] = d.ID

	resp, err := s.Client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     d.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (s *webhookDeliveryService) RetryDelivery(ctx context.Context, deliveryID string) (*dto.WebhookDeliveryResponse, error) {
	d, err := s.WebhookDeliveryRepo.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch {
	case d.DeliveryStatus == types.WebhookDeliveryStatusDelivered:
		return nil, ierr.NewError("webhook was already delivered").
			WithHint("Delivered webhooks can not be retried").
			WithReportableDetails(map[string]any{"delivery_id": d.ID}).
			Mark(ierr.ErrConflict)
	case d.DeliveryStatus == types.WebhookDeliveryStatusInFlight && !d.IsClaimable(now):
		return nil, ierr.NewError("webhook delivery is in flight").
			WithHint("Webhook is being delivered right now, check its status again shortly").
			WithReportableDetails(map[string]any{"delivery_id": d.ID}).
			Mark(ierr.ErrConflict)
	}

	d.Reopen(now)
	if err := s.WebhookDeliveryRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	if _, err := s.attempt(ctx, d, now); err != nil {
		return nil, err
	}
	return dto.NewWebhookDeliveryResponse(d), nil
}

func (s *webhookDeliveryService) RetryDue(ctx context.Context, now time.Time) (*dto.BatchSummary, error) {
	due, err := s.WebhookDeliveryRepo.ListDue(ctx, now, retryBatchSize)
	if err != nil {
		return nil, err
	}

	summary := &dto.BatchSummary{Processed: len(due)}
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(max(s.Config.Webhook.Concurrency, 1))
	for _, d := range due {
		p.Go(func() {
			outcome, err := s.attempt(ctx, d, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Fail(d.ID, err)
			case outcome == attemptDelivered:
				summary.Updated++
			default:
				summary.Skipped++
			}
		})
	}
	p.Wait()

	s.Logger.Infow("webhook deliveries retried", summary.LogFields()...)
	return summary, nil
}

func (s *webhookDeliveryService) PruneFinished(ctx context.Context, before time.Time) (int64, error) {
	return s.WebhookDeliveryRepo.PruneFinishedBefore(ctx, before)
}

func (s *webhookDeliveryService) GetDelivery(ctx context.Context, deliveryID string) (*dto.WebhookDeliveryResponse, error) {
	d, err := s.WebhookDeliveryRepo.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	return dto.NewWebhookDeliveryResponse(d), nil
}

func (s *webhookDeliveryService) ListDeliveries(ctx context.Context, filter *types.WebhookDeliveryFilter) (*dto.ListWebhookDeliveriesResponse, error) {
	if filter == nil {
		filter = types.NewWebhookDeliveryFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, err := s.WebhookDeliveryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.WebhookDeliveryRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewListResponse(
		lo.Map(items, func(d *webhookdelivery.Delivery, _ int) *dto.WebhookDeliveryResponse {
			return dto.NewWebhookDeliveryResponse(d)
		}),
		total, filter.GetLimit(), filter.GetOffset(),
	)
	return &resp, nil
}
