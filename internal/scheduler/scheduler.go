package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/domain/schedulerlock"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/sentry"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/types"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
)

// StepFunc runs one scheduler step for the given day
type StepFunc func(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error)

// Scheduler is the single periodic driver of the billing lifecycle. Every run holds a
// persisted run-lock, so overlapping runs from a restarted process or the cron endpoint are
// skipped instead of interleaved. Full and fast runs use separate locks.
type Scheduler struct {
	cfg    config.SchedulerConfig
	logger *logger.Logger
	sentry *sentry.Service
	locks  schedulerlock.Repository
	steps  map[types.SchedulerStep]StepFunc
	holder string

	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// Params are the services the scheduler drives
type Params struct {
	Config    *config.Configuration
	Logger    *logger.Logger
	Sentry    *sentry.Service
	Locks     schedulerlock.Repository
	Invoices  service.InvoiceService
	LateFees  service.LateFeeService
	Generator service.InvoiceGeneratorService
	Reminders service.ReminderService
	Webhooks  service.WebhookDeliveryService
	Cleanup   service.CleanupService
}

func New(p Params) *Scheduler {
	host, _ := os.Hostname()
	s := &Scheduler{
		cfg:    p.Config.Scheduler,
		logger: p.Logger,
		sentry: p.Sentry,
		locks:  p.Locks,
		holder: fmt.Sprintf("%s:%d", lo.Ternary(host == "", "billing", host), os.Getpid()),
	}
	s.steps = map[types.SchedulerStep]StepFunc{
		types.SchedulerStepOverdue: p.Invoices.ProcessOverdue,
		types.SchedulerStepLateFees: func(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error) {
			resp, err := p.LateFees.ProcessLateFees(ctx, asOf)
			if err != nil {
				return nil, err
			}
			return &resp.Summary, nil
		},
		types.SchedulerStepGeneration: func(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error) {
			resp, err := p.Generator.GenerateDue(ctx, asOf)
			if err != nil {
				return nil, err
			}
			summary := resp.Recurring
			summary.Add(resp.Scheduled)
			return &summary, nil
		},
		types.SchedulerStepReminders: p.Reminders.DispatchReminders,
		types.SchedulerStepWebhookRetry: func(ctx context.Context, _ time.Time) (*dto.BatchSummary, error) {
			return p.Webhooks.RetryDue(ctx, time.Now().UTC())
		},
		types.SchedulerStepCleanup: func(ctx context.Context, _ time.Time) (*dto.BatchSummary, error) {
			return p.Cleanup.PurgeSoftDeleted(ctx, time.Now().UTC())
		},
		types.SchedulerStepRetention: func(ctx context.Context, _ time.Time) (*dto.BatchSummary, error) {
			return p.Cleanup.PruneAnalytics(ctx, time.Now().UTC())
		},
	}
	return s
}

// Run executes one run for asOf. A fast run only sends reminders and retries webhooks.
// Step failures are recorded in the response and never stop later steps.
func (s *Scheduler) Run(ctx context.Context, asOf time.Time, fast bool) (*dto.SchedulerRunResponse, error) {
	asOf = types.ToDate(asOf)
	started := time.Now().UTC()
	resp := &dto.SchedulerRunResponse{
		RunID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SCHEDULER_RUN),
		Fast:      fast,
		AsOf:      types.FormatDate(asOf),
		StartedAt: started,
		Steps:     []dto.StepResult{},
	}
	ctx = types.NewSystemContext(ctx)
	ctx = types.SetRequestID(ctx, resp.RunID)

	lockName := s.lockName(fast)
	holder := s.holder + ":" + resp.RunID
	acquired, err := s.locks.Acquire(ctx, lockName, holder, started, s.cfg.LockLease)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Scheduler run-lock could not be acquired").
			Mark(ierr.ErrDatabase)
	}
	if !acquired {
		s.logger.Infow("scheduler run skipped, run-lock is held", "run_id", resp.RunID, "lock", lockName)
		resp.Skipped = true
		resp.FinishedAt = time.Now().UTC()
		return resp, nil
	}

	span, ctx := s.sentry.StartTransaction(ctx, "scheduler.run")
	if span != nil {
		defer span.Finish()
	}

	steps := lo.Ternary(fast, types.SchedulerFastSteps, types.SchedulerSteps)
	var result *multierror.Error
	for _, step := range steps {
		stepResult := s.runStep(ctx, step, asOf)
		if stepResult.Error != "" {
			result = multierror.Append(result, fmt.Errorf("%s: %s", step, stepResult.Error))
		}
		resp.Steps = append(resp.Steps, stepResult)
	}
	resp.FinishedAt = time.Now().UTC()

	// a cancelled run still frees the lock
	releaseCtx := context.WithoutCancel(ctx)
	if err := s.locks.Release(releaseCtx, lockName, holder, resp.FinishedAt, summarize(resp)); err != nil {
		s.logger.Errorw("failed to release scheduler run-lock", "run_id", resp.RunID, "error", err)
	}

	if err := result.ErrorOrNil(); err != nil {
		s.logger.Errorw("scheduler run finished with failed steps",
			"run_id", resp.RunID,
			"as_of", resp.AsOf,
			"fast", fast,
			"error", err,
		)
	} else {
		s.logger.Infow("scheduler run finished",
			"run_id", resp.RunID,
			"as_of", resp.AsOf,
			"fast", fast,
			"duration_ms", resp.FinishedAt.Sub(started).Milliseconds(),
		)
	}
	return resp, nil
}

func (s *Scheduler) runStep(ctx context.Context, step types.SchedulerStep, asOf time.Time) (result dto.StepResult) {
	result = dto.StepResult{Step: step}
	started := time.Now()

	span, ctx := s.sentry.StartSchedulerSpan(ctx, step.String())
	defer func() {
		if r := recover(); r != nil {
			err := ierr.NewErrorf("scheduler step %s panicked: %v", step, r).Mark(ierr.ErrSystem)
			s.logger.Errorw("scheduler step panicked", "step", step, "panic", r, "stack", string(debug.Stack()))
			s.sentry.CaptureException(err)
			result.Error = err.Error()
		}
		if span != nil {
			span.Finish()
		}
		result.DurationMs = time.Since(started).Milliseconds()
	}()

	fn, ok := s.steps[step]
	if !ok {
		result.Error = "unknown step"
		return result
	}

	summary, err := fn(ctx, asOf)
	if summary != nil {
		result.Summary = *summary
	}
	if err != nil {
		result.Error = err.Error()
		s.sentry.CaptureException(err)
		s.logger.Errorw("scheduler step failed", append(result.Summary.LogFields(), "step", step, "error", err)...)
		return result
	}
	s.logger.Infow("scheduler step finished", append(result.Summary.LogFields(), "step", step)...)
	return result
}

// Start launches the daily loop and, when configured, the fast loop
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Infow("scheduler disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.wg.Go(func() { s.loop(ctx, s.cfg.Interval, false, s.cfg.RunOnStart) })
	if s.cfg.FastInterval > 0 {
		s.wg.Go(func() { s.loop(ctx, s.cfg.FastInterval, true, false) })
	}
	s.logger.Infow("scheduler started",
		"interval", s.cfg.Interval.String(),
		"fast_interval", s.cfg.FastInterval.String(),
		"holder", s.holder,
	)
}

// Stop cancels the loops and waits for a run in progress to finish
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Infow("scheduler stopped")
}

// loop runs on every interval. A skipped full run is retried after SkippedRetryDelay until it
// runs or the next interval comes around.
func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fast, runNow bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var retry <-chan time.Time
	if runNow {
		retry = s.tick(ctx, fast)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-retry:
		}
		retry = s.tick(ctx, fast)
	}
}

// tick runs once and returns the retry timer of a skipped full run, nil otherwise
func (s *Scheduler) tick(ctx context.Context, fast bool) <-chan time.Time {
	resp, err := s.Run(ctx, time.Now(), fast)
	if err != nil {
		s.logger.Errorw("scheduler run failed", "fast", fast, "error", err)
		s.sentry.CaptureException(err)
		return nil
	}
	if !resp.Skipped || fast || s.cfg.SkippedRetryDelay <= 0 {
		return nil
	}
	s.logger.Infow("scheduler run will be retried", "run_id", resp.RunID, "after", s.cfg.SkippedRetryDelay.String())
	return time.After(s.cfg.SkippedRetryDelay)
}

func (s *Scheduler) lockName(fast bool) string {
	return lo.Ternary(fast, s.cfg.FastLockName, s.cfg.LockName)
}

// LastRun returns the finish time and summary of the last completed full run
func (s *Scheduler) LastRun(ctx context.Context) (*schedulerlock.Lock, error) {
	return s.locks.Get(ctx, s.cfg.LockName)
}

// summarize renders the step summaries stored on the run-lock
func summarize(resp *dto.SchedulerRunResponse) string {
	type stepSummary struct {
		Step    types.SchedulerStep `json:"step"`
		Summary dto.BatchSummary    `json:"summary"`
		Error   string              `json:"error,omitempty"`
	}
	out := lo.Map(resp.Steps, func(r dto.StepResult, _ int) stepSummary {
		summary := r.Summary
		summary.Errors = nil
		return stepSummary{Step: r.Step, Summary: summary, Error: r.Error}
	})
	b, err := json.Marshal(map[string]any{"run_id": resp.RunID, "as_of": resp.AsOf, "fast": resp.Fast, "steps": out})
	if err != nil {
		return resp.RunID
	}
	return string(b)
}
