package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/email"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// actionRun carries one event through the actions of one trigger
type actionRun struct {
	engine    *workflowEngine
	log       *workflow.EventLog
	trigger   *workflow.Trigger
	event     *workflow.Event
	fields    workflow.Fields
	dedupeKey string
}

// execute interprets the action and returns the id of the entity it produced or changed
func (r actionRun) execute(ctx context.Context, action workflow.Action) (string, error) {
	switch action.Type {
	case types.ActionSendEmail:
		return r.sendEmail(ctx, action.SendEmail)
	case types.ActionCreateTask:
		return r.createTask(ctx, action.CreateTask)
	case types.ActionUpdateStatus:
		return r.updateStatus(ctx, action.UpdateStatus)
	case types.ActionWebhook:
		return r.webhook(ctx, action.Webhook)
	case types.ActionNotify:
		return r.notify(ctx, action.Notify)
	case types.ActionCreateInvoice:
		return r.createInvoice(ctx, action.CreateInvoice)
	}
	return "", ierr.NewErrorf("unsupported action %s", action.Type).
		Mark(ierr.ErrValidation)
}

// str returns a string payload field, empty when missing
func (r actionRun) str(name string) string {
	if name == "" {
		return ""
	}
	v, ok := r.fields[name]
	if !ok || v.Kind != workflow.FieldKindString {
		return ""
	}
	return v.Str
}

// strOr returns the string field name, or fallback when it is missing or empty
func (r actionRun) strOr(name, fallback string) string {
	if v := r.str(name); v != "" {
		return v
	}
	return fallback
}

func (r actionRun) render(text string) (string, error) {
	return workflow.Render(text, r.fields)
}

func missingConfig(t types.WorkflowActionType) error {
	return ierr.NewErrorf("%s action has no config", t).
		Mark(ierr.ErrValidation)
}

func (r actionRun) sendEmail(ctx context.Context, c *workflow.SendEmailConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionSendEmail)
	}
	to := r.strOr(c.RecipientField, c.Recipient)
	if to == "" {
		return "", skipAction("event carries no email recipient in %q", c.RecipientField)
	}
	subject, err := r.render(c.Subject)
	if err != nil {
		return "", err
	}
	body, err := r.render(c.Body)
	if err != nil {
		return "", err
	}
	result, err := r.engine.EmailSender.Send(ctx, email.Message{
		ToAddress: to,
		Subject:   subject,
		Text:      body,
	})
	if err != nil {
		return "", err
	}
	if result != nil {
		return result.MessageID, nil
	}
	return "", nil
}

func (r actionRun) createTask(ctx context.Context, c *workflow.CreateTaskConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionCreateTask)
	}
	title, err := r.render(c.Title)
	if err != nil {
		return "", err
	}
	description, err := r.render(c.Description)
	if err != nil {
		return "", err
	}

	t := &task.Task{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TASK),
		Title:           title,
		Description:     description,
		ProjectID:       lo.EmptyableToPtr(r.str("project_id")),
		LeadID:          lo.EmptyableToPtr(r.str("lead_id")),
		AssigneeID:      lo.EmptyableToPtr(c.AssigneeID),
		Priority:        lo.Ternary(c.Priority == "", types.TaskPriorityMedium, c.Priority),
		TaskStatus:      types.TaskStatusTodo,
		SourceEventType: lo.ToPtr(r.event.Type),
		SourceEntityID:  lo.ToPtr(r.event.SourceEntityID()),
		TriggerID:       lo.ToPtr(r.trigger.ID),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if c.DueInDays > 0 {
		due := types.ToDate(time.Now()).AddDate(0, 0, c.DueInDays)
		t.DueDate = &due
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	if err := r.engine.TaskRepo.Create(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (r actionRun) updateStatus(ctx context.Context, c *workflow.UpdateStatusConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionUpdateStatus)
	}
	id := r.str(c.EntityIDFieldOrDefault())
	if id == "" {
		return "", skipAction("event carries no %s", c.EntityIDFieldOrDefault())
	}

	switch c.Entity {
	case types.EntityTypeInvoice:
		inv, err := r.engine.invoices.UpdateStatus(ctx, id, types.InvoiceStatus(c.Status))
		if err != nil {
			return "", err
		}
		return inv.ID, nil

	case types.EntityTypeTask:
		status := types.TaskStatus(c.Status)
		if err := status.Validate(); err != nil {
			return "", err
		}
		t, err := r.engine.TaskRepo.Get(ctx, id)
		if err != nil {
			return "", err
		}
		t.TaskStatus = status
		if status == types.TaskStatusDone {
			now := time.Now().UTC()
			t.CompletedAt = &now
		}
		if err := r.engine.TaskRepo.Update(ctx, t); err != nil {
			return "", err
		}
		return t.ID, nil
	}
	return "", c.Entity.Validate()
}

// webhookBody is the JSON document POSTed to workflow webhooks
type webhookBody struct {
	DeliveryID     string                  `json:"delivery_id"`
	EventType      types.WorkflowEventType `json:"event_type"`
	OccurredAt     time.Time               `json:"occurred_at"`
	SourceEntityID string                  `json:"source_entity_id"`
	TriggerID      string                  `json:"trigger_id"`
	Payload        json.RawMessage         `json:"payload"`
}

// webhook persists a pending delivery and hands it to the background consumer once the
// surrounding transaction commits. The HTTP call never runs inline.
func (r actionRun) webhook(ctx context.Context, c *workflow.WebhookConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionWebhook)
	}
	cfg := r.engine.Config.Webhook
	now := time.Now().UTC()

	d := &webhookdelivery.Delivery{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_DELIVERY),
		TriggerID:      r.trigger.ID,
		EventLogID:     lo.ToPtr(r.log.ID),
		EventType:      r.event.Type,
		SourceEntityID: r.event.SourceEntityID(),
		URL:            c.URL,
		Secret:         c.Secret,
		Headers:        types.Metadata(c.Headers),
		DeliveryStatus: types.WebhookDeliveryStatusPending,
		MaxAttempts:    max(cfg.MaxAttempts, 1),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	body, err := json.Marshal(webhookBody{
		DeliveryID:     d.ID,
		EventType:      r.event.Type,
		OccurredAt:     r.event.OccurredAt,
		SourceEntityID: r.event.SourceEntityID(),
		TriggerID:      r.trigger.ID,
		Payload:        json.RawMessage(r.log.Payload),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Webhook body could not be encoded").
			Mark(ierr.ErrSystem)
	}
	d.Payload = string(body)

	if err := r.engine.WebhookDeliveryRepo.Create(ctx, d); err != nil {
		return "", err
	}
	if cfg.Enabled && r.engine.WebhookPublisher != nil {
		msg := &types.WebhookMessage{
			DeliveryID: d.ID,
			RequestID:  types.GetRequestID(ctx),
			Timestamp:  now,
		}
		r.engine.DB.AfterCommit(ctx, func(ctx context.Context) {
			// an unpublished delivery stays pending and is picked up by the retry step
			if err := r.engine.WebhookPublisher.PublishDelivery(ctx, msg); err != nil {
				r.engine.Logger.Warnw("webhook delivery left for the retry step",
					"delivery_id", msg.DeliveryID,
					"error", err,
				)
			}
		})
	}
	return d.ID, nil
}

func (r actionRun) notify(ctx context.Context, c *workflow.NotifyConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionNotify)
	}
	recipient := r.strOr(c.RecipientField, c.RecipientID)
	if recipient == "" {
		return "", skipAction("event carries no notification recipient in %q", c.RecipientField)
	}
	title, err := r.render(c.Title)
	if err != nil {
		return "", err
	}
	body, err := r.render(c.Body)
	if err != nil {
		return "", err
	}

	n := &notification.Notification{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		RecipientID: recipient,
		Title:       title,
		Body:        body,
		EntityType:  lo.ToPtr(string(r.event.Type)),
		EntityID:    lo.ToPtr(r.event.SourceEntityID()),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := n.Validate(); err != nil {
		return "", err
	}
	if err := r.engine.NotificationRepo.Create(ctx, n); err != nil {
		return "", err
	}
	return n.ID, nil
}

// createInvoice drafts an invoice for the client of the event and optionally sends it.
// The invoice carries the dedupe key as its idempotency key.
func (r actionRun) createInvoice(ctx context.Context, c *workflow.CreateInvoiceConfig) (string, error) {
	if c == nil {
		return "", missingConfig(types.ActionCreateInvoice)
	}
	clientID := r.str("client_id")
	if clientID == "" {
		return "", skipAction("event carries no client_id")
	}

	amount := c.Amount
	if c.AmountField != "" {
		v, ok := r.fields[c.AmountField]
		if !ok || v.Kind != workflow.FieldKindNumber {
			return "", ierr.NewErrorf("event field %s is not a number", c.AmountField).
				Mark(ierr.ErrValidation)
		}
		amount = v.Num
	}
	if !amount.IsPositive() {
		return "", skipAction("invoice amount %s is not positive", amount.String())
	}
	description, err := r.render(c.Description)
	if err != nil {
		return "", err
	}

	req := &dto.CreateInvoiceRequest{
		ClientID:     clientID,
		ProjectID:    lo.EmptyableToPtr(r.str("project_id")),
		MilestoneID:  lo.EmptyableToPtr(r.str("milestone_id")),
		Currency:     lo.Ternary(c.Currency != "", c.Currency, r.str("currency")),
		TaxRate:      c.TaxRate,
		IsDeposit:    c.IsDeposit,
		BillingEmail: lo.EmptyableToPtr(r.str("billing_email")),
		LineItems: []dto.LineItemRequest{{
			Description: description,
			Quantity:    decimal.NewFromInt(1),
			UnitRate:    amount,
		}},
		Source: types.InvoiceSourceWorkflow,
	}
	if c.DueDays > 0 {
		req.DueDays = lo.ToPtr(c.DueDays)
	}
	if r.dedupeKey != "" {
		req.IdempotencyKey = lo.ToPtr(r.dedupeKey)
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	inv, err := r.engine.invoices.createInvoice(ctx, req)
	if err != nil {
		return "", err
	}
	if c.SendImmediately {
		if _, err := r.engine.invoices.transition(ctx, inv.ID, invoice.TransitionSend, nil); err != nil {
			return "", err
		}
	}
	return inv.ID, nil
}
