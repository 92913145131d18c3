package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/freelanceops/billing/internal/cache"
	"github.com/freelanceops/billing/internal/domain/workflow"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/idempotency"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

// MaxEmitDepth bounds chains of events emitted by actions of other events
const MaxEmitDepth = 3

// errActionSkipped marks an action that had nothing to act on
var errActionSkipped = errors.New("action skipped")

func skipAction(format string, args ...any) error {
	return errors.Mark(fmt.Errorf(format, args...), errActionSkipped)
}

// WorkflowEngine matches events against triggers and runs their actions
type WorkflowEngine interface {
	// Emit handles event synchronously and records it in the event log. Action failures are
	// recorded in the returned log and never fail the call.
	Emit(ctx context.Context, event *workflow.Event) (*workflow.EventLog, error)
}

type workflowEngine struct {
	ServiceParams
	invoices *invoiceService
	keys     *idempotency.Generator
}

func NewWorkflowEngine(params ServiceParams) WorkflowEngine {
	return &workflowEngine{
		ServiceParams: params,
		invoices:      &invoiceService{ServiceParams: params},
		keys:          idempotency.NewGenerator(),
	}
}

func (e *workflowEngine) Emit(ctx context.Context, event *workflow.Event) (*workflow.EventLog, error) {
	if event == nil {
		return nil, ierr.NewError("event is required").
			WithHint("Please provide an event").
			Mark(ierr.ErrValidation)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	payload, err := event.PayloadJSON()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Event payload could not be encoded").
			Mark(ierr.ErrSystem)
	}

	depth := types.GetEmitDepth(ctx)
	span, ctx := e.Sentry.MonitorEventProcessing(ctx, string(event.Type), event.OccurredAt, depth)
	if span != nil {
		defer span.Finish()
	}

	log := &workflow.EventLog{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WORKFLOW_EVENT),
		EventType:      event.Type,
		SourceEntityID: event.SourceEntityID(),
		Payload:        string(payload),
		OccurredAt:     event.OccurredAt,
		Depth:          depth,
		Results:        []workflow.ActionResult{},
		CreatedAt:      time.Now().UTC(),
	}
	if requestID := types.GetRequestID(ctx); requestID != "" {
		log.RequestID = lo.ToPtr(requestID)
	}

	if depth >= MaxEmitDepth {
		e.Logger.Warnw("workflow event dropped at maximum emit depth",
			"event_type", event.Type,
			"source_entity_id", log.SourceEntityID,
			"depth", depth,
		)
		e.saveLog(ctx, log)
		return log, nil
	}

	triggers, err := e.activeTriggers(ctx, event.Type)
	if err != nil {
		return nil, err
	}

	// events emitted by actions are one level deeper
	actionCtx := types.WithEmitDepth(ctx)
	for _, trigger := range triggers {
		if !trigger.Matches(event) {
			continue
		}
		log.TriggersMatched++
		for i, action := range trigger.Actions {
			log.Results = append(log.Results, e.runAction(actionCtx, log, trigger, i, action, event))
		}
	}
	log.Tally()
	e.saveLog(ctx, log)

	e.Logger.Infow("workflow event processed",
		"event_type", event.Type,
		"source_entity_id", log.SourceEntityID,
		"depth", depth,
		"triggers_matched", log.TriggersMatched,
		"actions_succeeded", log.ActionsSucceeded,
		"actions_failed", log.ActionsFailed,
	)
	return log, nil
}

func (e *workflowEngine) saveLog(ctx context.Context, log *workflow.EventLog) {
	if err := e.EventLogRepo.Create(types.WithoutTransaction(ctx), log); err != nil {
		e.Logger.Errorw("failed to write workflow event log",
			"event_log_id", log.ID,
			"event_type", log.EventType,
			"error", err,
		)
	}
}

// activeTriggers returns the active triggers of an event type, highest priority first
func (e *workflowEngine) activeTriggers(ctx context.Context, eventType types.WorkflowEventType) ([]*workflow.Trigger, error) {
	useCache := e.Cache != nil && e.Config.Cache.Enabled
	key := cache.TriggersKey(string(eventType))
	if useCache {
		if cached, ok := e.Cache.Get(ctx, key); ok {
			if triggers, ok := cached.([]*workflow.Trigger); ok {
				return triggers, nil
			}
		}
	}

	triggers, err := e.TriggerRepo.ListActiveByEvent(ctx, eventType)
	if err != nil {
		return nil, err
	}
	workflow.SortByPriority(triggers)
	if useCache {
		e.Cache.Set(ctx, key, triggers, e.Config.Cache.TriggerTTL)
	}
	return triggers, nil
}

// runAction executes one action in isolation. Financial actions claim their dedupe key in the
// same transaction as their mutation, so a repeated event can not apply them twice.
func (e *workflowEngine) runAction(
	ctx context.Context,
	log *workflow.EventLog,
	trigger *workflow.Trigger,
	index int,
	action workflow.Action,
	event *workflow.Event,
) (result workflow.ActionResult) {
	result = workflow.ActionResult{
		TriggerID:   trigger.ID,
		TriggerName: trigger.Name,
		ActionIndex: index,
		ActionType:  action.Type,
	}
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Errorw("workflow action panicked",
				"trigger_id", trigger.ID,
				"action_index", index,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result.Outcome = types.ActionOutcomeFailed
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	run := actionRun{engine: e, log: log, trigger: trigger, event: event, fields: event.Payload.Fields()}

	var (
		entityID  string
		duplicate bool
		err       error
	)
	if action.IsFinancial() {
		entityID, duplicate, err = e.runFinancial(ctx, run, index, action)
	} else {
		entityID, err = run.execute(ctx, action)
	}

	switch {
	case duplicate:
		result.Outcome = types.ActionOutcomeDuplicate
	case errors.Is(err, errActionSkipped):
		result.Outcome = types.ActionOutcomeSkipped
		result.Error = err.Error()
	case err != nil:
		result.Outcome = types.ActionOutcomeFailed
		result.Error = err.Error()
		e.Logger.Errorw("workflow action failed",
			"trigger_id", trigger.ID,
			"event_type", event.Type,
			"source_entity_id", event.SourceEntityID(),
			"action_index", index,
			"action_type", action.Type,
			"error", err,
		)
	default:
		result.Outcome = types.ActionOutcomeSucceeded
		result.EntityID = entityID
	}
	e.Sentry.AddBreadcrumb(ctx, "workflow.action", string(action.Type), map[string]interface{}{
		"trigger_id":   trigger.ID,
		"action_index": index,
		"outcome":      result.Outcome,
	})
	return result
}

func (e *workflowEngine) runFinancial(ctx context.Context, run actionRun, index int, action workflow.Action) (string, bool, error) {
	exec := &workflow.Execution{
		ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WORKFLOW_EXECUTION),
		DedupeKey: e.keys.GenerateKey(idempotency.ScopeWorkflowAction, map[string]interface{}{
			"trigger_id":       run.trigger.ID,
			"event_type":       run.event.Type,
			"source_entity_id": run.event.SourceEntityID(),
			"action_index":     index,
		}),
		TriggerID:      run.trigger.ID,
		EventType:      run.event.Type,
		SourceEntityID: run.event.SourceEntityID(),
		ActionIndex:    index,
		ActionType:     action.Type,
		CreatedAt:      time.Now().UTC(),
	}
	run.dedupeKey = exec.DedupeKey

	var entityID string
	duplicate := false
	err := e.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := e.ExecutionRepo.Claim(ctx, exec); err != nil {
			duplicate = ierr.IsAlreadyExists(err)
			return err
		}
		var err error
		entityID, err = run.execute(ctx, action)
		if err != nil {
			return err
		}
		if entityID != "" {
			return e.ExecutionRepo.SetResult(ctx, exec.ID, entityID)
		}
		return nil
	})
	if duplicate {
		e.Logger.Infow("workflow action already executed",
			"trigger_id", run.trigger.ID,
			"event_type", run.event.Type,
			"source_entity_id", run.event.SourceEntityID(),
			"action_index", index,
		)
		return "", true, nil
	}
	return entityID, false, err
}
