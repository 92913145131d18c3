package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SchedulerSuite struct {
	testutil.BaseServiceTestSuite
	scheduler *Scheduler
	params    service.ServiceParams
	invoices  service.InvoiceService
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.params = service.NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetSentry(),
		s.GetCache(),
		s.GetEncryption(),
		stores.InvoiceRepo,
		stores.PaymentRepo,
		stores.CreditRepo,
		stores.RecurringRepo,
		stores.ScheduledInvoiceRepo,
		stores.TriggerRepo,
		stores.ExecutionRepo,
		stores.EventLogRepo,
		stores.WebhookDeliveryRepo,
		stores.TaskRepo,
		stores.NotificationRepo,
		stores.SchedulerLockRepo,
		s.GetPublisher(),
		nil,
		s.GetEmailSender(),
		s.GetHTTPClient(),
	)
	s.GetPublisher().Subscribe(service.NewWorkflowEngine(s.params))

	s.invoices = service.NewInvoiceService(s.params)
	s.scheduler = s.newScheduler(s.GetConfig())
}

func (s *SchedulerSuite) newScheduler(cfg *config.Configuration) *Scheduler {
	return New(Params{
		Config:    cfg,
		Logger:    s.GetLogger(),
		Sentry:    s.GetSentry(),
		Locks:     s.GetStores().SchedulerLockRepo,
		Invoices:  s.invoices,
		LateFees:  service.NewLateFeeService(s.params),
		Generator: service.NewInvoiceGeneratorService(s.params),
		Reminders: service.NewReminderService(s.params),
		Webhooks:  service.NewWebhookDeliveryService(s.params),
		Cleanup:   service.NewCleanupService(s.params),
	})
}

func (s *SchedulerSuite) TestRunExecutesEveryStepInOrder() {
	issued := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	created, err := s.invoices.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		ClientID:   "client_1",
		IssuedDate: &issued,
		DueDate:    &due,
		LineItems: []dto.LineItemRequest{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(1),
			UnitRate:    decimal.NewFromInt(400),
		}},
	})
	s.Require().NoError(err)
	_, err = s.invoices.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	resp, err := s.scheduler.Run(s.GetContext(), time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC), false)
	s.Require().NoError(err)
	s.False(resp.Skipped)
	s.Equal("2026-03-10", resp.AsOf)
	s.Require().Len(resp.Steps, len(types.SchedulerSteps))
	for i, step := range resp.Steps {
		s.Equal(types.SchedulerSteps[i], step.Step)
		s.Empty(step.Error, "step %s", step.Step)
	}
	s.Equal(1, resp.Steps[0].Summary.Updated)

	last, err := s.scheduler.LastRun(s.GetContext())
	s.Require().NoError(err)
	s.Require().NotNil(last.LastFinishedAt)
	s.Require().NotNil(last.LastSummary)
	s.Contains(*last.LastSummary, resp.RunID)
	s.False(last.IsHeld(time.Now().UTC()))
}

func (s *SchedulerSuite) TestFastRunOnlyRunsFastSteps() {
	resp, err := s.scheduler.Run(s.GetContext(), time.Now(), true)
	s.Require().NoError(err)
	s.True(resp.Fast)
	s.Require().Len(resp.Steps, len(types.SchedulerFastSteps))
	s.Equal(types.SchedulerStepReminders, resp.Steps[0].Step)
}

func (s *SchedulerSuite) TestRunIsSkippedWhileLockIsHeld() {
	cfg := s.GetConfig().Scheduler
	acquired, err := s.GetStores().SchedulerLockRepo.Acquire(s.GetContext(), cfg.LockName, "other-host:1", time.Now().UTC(), time.Hour)
	s.Require().NoError(err)
	s.Require().True(acquired)

	resp, err := s.scheduler.Run(s.GetContext(), time.Now(), false)
	s.Require().NoError(err)
	s.True(resp.Skipped)
	s.Empty(resp.Steps)

	lock, err := s.scheduler.LastRun(s.GetContext())
	s.Require().NoError(err)
	s.Equal("other-host:1", lock.Holder)
}

func (s *SchedulerSuite) TestExpiredLeaseIsTakenOver() {
	cfg := s.GetConfig().Scheduler
	stale := time.Now().UTC().Add(-2 * time.Hour)
	acquired, err := s.GetStores().SchedulerLockRepo.Acquire(s.GetContext(), cfg.LockName, "crashed-host:1", stale, time.Hour)
	s.Require().NoError(err)
	s.Require().True(acquired)

	resp, err := s.scheduler.Run(s.GetContext(), time.Now(), false)
	s.Require().NoError(err)
	s.False(resp.Skipped)
}

func (s *SchedulerSuite) TestFastRunDoesNotBlockFullRun() {
	cfg := s.GetConfig().Scheduler
	acquired, err := s.GetStores().SchedulerLockRepo.Acquire(s.GetContext(), cfg.FastLockName, "other-host:1", time.Now().UTC(), time.Hour)
	s.Require().NoError(err)
	s.Require().True(acquired)

	fast, err := s.scheduler.Run(s.GetContext(), time.Now(), true)
	s.Require().NoError(err)
	s.True(fast.Skipped)

	full, err := s.scheduler.Run(s.GetContext(), time.Now(), false)
	s.Require().NoError(err)
	s.False(full.Skipped)
	s.Len(full.Steps, len(types.SchedulerSteps))
}

func (s *SchedulerSuite) TestSkippedFullRunIsRetried() {
	cfg := *s.GetConfig()
	cfg.Scheduler.SkippedRetryDelay = 20 * time.Millisecond
	sched := s.newScheduler(&cfg)

	acquired, err := s.GetStores().SchedulerLockRepo.Acquire(s.GetContext(), cfg.Scheduler.LockName, "other-host:1", time.Now().UTC(), 300*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(acquired)

	ctx, cancel := context.WithCancel(s.GetContext())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.loop(ctx, time.Hour, false, true)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s.Eventually(func() bool {
		lock, err := sched.LastRun(s.GetContext())
		return err == nil && lock.LastFinishedAt != nil
	}, 5*time.Second, 20*time.Millisecond)
}
