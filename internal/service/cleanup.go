package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/hashicorp/go-multierror"
)

// CleanupService removes rows that outlived their retention window. Invoices, payments,
// credits and recurring series are never purged.
type CleanupService interface {
	// PurgeSoftDeleted drops triggers, tasks and notifications soft deleted before the window
	PurgeSoftDeleted(ctx context.Context, now time.Time) (*dto.BatchSummary, error)
	// PruneAnalytics drops event log entries and finished webhook deliveries past the window
	PruneAnalytics(ctx context.Context, now time.Time) (*dto.BatchSummary, error)
}

type cleanupService struct {
	ServiceParams
}

func NewCleanupService(params ServiceParams) CleanupService {
	return &cleanupService{ServiceParams: params}
}

type purgeStep struct {
	name string
	run  func(ctx context.Context, before time.Time) (int64, error)
}

func (s *cleanupService) PurgeSoftDeleted(ctx context.Context, now time.Time) (*dto.BatchSummary, error) {
	before := now.AddDate(0, 0, -max(s.Config.Retention.SoftDeleteDays, 1))
	return s.purge(ctx, "soft deleted rows purged", before, []purgeStep{
		{name: "workflow_triggers", run: s.TriggerRepo.PurgeDeleted},
		{name: "tasks", run: s.TaskRepo.PurgeDeleted},
		{name: "notifications", run: s.NotificationRepo.PurgeDeleted},
	})
}

func (s *cleanupService) PruneAnalytics(ctx context.Context, now time.Time) (*dto.BatchSummary, error) {
	before := now.AddDate(0, 0, -max(s.Config.Retention.AnalyticsDays, 1))
	return s.purge(ctx, "analytics retention applied", before, []purgeStep{
		{name: "workflow_event_log", run: s.EventLogRepo.PruneBefore},
		{name: "webhook_delivery_log", run: s.WebhookDeliveryRepo.PruneFinishedBefore},
	})
}

// purge runs every step even when an earlier one fails and returns the combined error
func (s *cleanupService) purge(ctx context.Context, msg string, before time.Time, steps []purgeStep) (*dto.BatchSummary, error) {
	summary := &dto.BatchSummary{}
	var result *multierror.Error

	fields := []interface{}{"before", before.Format(time.RFC3339)}
	for _, step := range steps {
		summary.Processed++
		removed, err := step.run(ctx, before)
		if err != nil {
			summary.Fail(step.name, err)
			result = multierror.Append(result, err)
			continue
		}
		summary.Updated += int(removed)
		fields = append(fields, step.name, removed)
	}

	s.Logger.Infow(msg, fields...)
	return summary, result.ErrorOrNil()
}
