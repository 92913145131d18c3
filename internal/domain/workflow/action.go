package workflow

import (
	"net/url"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Action is one step of a trigger. Exactly one config, the one matching Type, is set.
type Action struct {
	Type          types.WorkflowActionType `json:"type"`
	SendEmail     *SendEmailConfig         `json:"send_email,omitempty"`
	CreateTask    *CreateTaskConfig        `json:"create_task,omitempty"`
	UpdateStatus  *UpdateStatusConfig      `json:"update_status,omitempty"`
	Webhook       *WebhookConfig           `json:"webhook,omitempty"`
	Notify        *NotifyConfig            `json:"notify,omitempty"`
	CreateInvoice *CreateInvoiceConfig     `json:"create_invoice,omitempty"`
}

// SendEmailConfig sends a templated email. The recipient is the payload field
// RecipientField when it is set and not empty, otherwise Recipient.
type SendEmailConfig struct {
	RecipientField string `json:"recipient_field,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

// CreateTaskConfig inserts a task tied to the project and lead of the event
type CreateTaskConfig struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Priority    types.TaskPriority `json:"priority,omitempty"`
	DueInDays   int                `json:"due_in_days,omitempty"`
	AssigneeID  string             `json:"assignee_id,omitempty"`
}

// UpdateStatusConfig moves an entity named by a payload field to a new status
type UpdateStatusConfig struct {
	Entity types.EntityType `json:"entity"`
	// EntityIDField defaults to the id field of the entity, e.g. invoice_id
	EntityIDField string `json:"entity_id_field,omitempty"`
	Status        string `json:"status"`
}

// WebhookConfig posts the event to an external URL signed with Secret.
// Secret is stored encrypted and never returned by the API.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Secret  string            `json:"secret,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NotifyConfig creates an in-app notification
type NotifyConfig struct {
	RecipientID    string `json:"recipient_id,omitempty"`
	RecipientField string `json:"recipient_field,omitempty"`
	Title          string `json:"title"`
	Body           string `json:"body,omitempty"`
}

// CreateInvoiceConfig drafts an invoice for the client and project of the event.
// The amount is read from AmountField, or Amount when no field is named.
type CreateInvoiceConfig struct {
	AmountField     string          `json:"amount_field,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Currency        string          `json:"currency,omitempty"`
	DueDays         int             `json:"due_days,omitempty"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	IsDeposit       bool            `json:"is_deposit,omitempty"`
	SendImmediately bool            `json:"send_immediately,omitempty"`
}

// EntityIDFieldOrDefault returns the payload field holding the target id
func (c *UpdateStatusConfig) EntityIDFieldOrDefault() string {
	if c.EntityIDField != "" {
		return c.EntityIDField
	}
	return string(c.Entity) + "_id"
}

// TargetEntity is the entity the action mutates, empty for actions without one
func (a Action) TargetEntity() types.EntityType {
	switch a.Type {
	case types.ActionUpdateStatus:
		if a.UpdateStatus != nil {
			return a.UpdateStatus.Entity
		}
	case types.ActionCreateInvoice:
		return types.EntityTypeInvoice
	}
	return ""
}

// IsFinancial reports whether the action runs under a dedupe key
func (a Action) IsFinancial() bool {
	return a.Type.IsFinancial(a.TargetEntity())
}

func invalidAction(t types.WorkflowActionType, hint string) error {
	return ierr.NewErrorf("invalid %s action", t).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"action_type": t,
		}).
		Mark(ierr.ErrValidation)
}

// Validate checks the config against the fields of the event the trigger listens to
func (a Action) Validate(schema map[string]FieldKind) error {
	if err := a.Type.Validate(); err != nil {
		return err
	}

	set := 0
	for _, present := range []bool{
		a.SendEmail != nil, a.CreateTask != nil, a.UpdateStatus != nil,
		a.Webhook != nil, a.Notify != nil, a.CreateInvoice != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return invalidAction(a.Type, "Provide exactly one config matching the action type")
	}

	field := func(name string, kinds ...FieldKind) error {
		kind, ok := schema[name]
		if !ok {
			return invalidAction(a.Type, "Unknown payload field "+name)
		}
		for _, k := range kinds {
			if k == kind {
				return nil
			}
		}
		return invalidAction(a.Type, "Payload field "+name+" has type "+string(kind))
	}

	switch a.Type {
	case types.ActionSendEmail:
		c := a.SendEmail
		if c == nil {
			return invalidAction(a.Type, "send_email config is required")
		}
		if c.RecipientField == "" && c.Recipient == "" {
			return invalidAction(a.Type, "Provide a recipient or a recipient field")
		}
		if c.RecipientField != "" {
			if err := field(c.RecipientField, FieldKindString); err != nil {
				return err
			}
		}
		if c.Subject == "" {
			return invalidAction(a.Type, "Email subject is required")
		}
		if err := validateTemplate(c.Subject, schema); err != nil {
			return err
		}
		return validateTemplate(c.Body, schema)

	case types.ActionCreateTask:
		c := a.CreateTask
		if c == nil {
			return invalidAction(a.Type, "create_task config is required")
		}
		if c.Title == "" {
			return invalidAction(a.Type, "Task title is required")
		}
		if c.DueInDays < 0 {
			return invalidAction(a.Type, "due_in_days must not be negative")
		}
		if err := validateTemplate(c.Title, schema); err != nil {
			return err
		}
		return validateTemplate(c.Description, schema)

	case types.ActionUpdateStatus:
		c := a.UpdateStatus
		if c == nil {
			return invalidAction(a.Type, "update_status config is required")
		}
		if err := c.Entity.Validate(); err != nil {
			return err
		}
		if err := field(c.EntityIDFieldOrDefault(), FieldKindString); err != nil {
			return err
		}
		switch c.Entity {
		case types.EntityTypeInvoice:
			allowed := []types.InvoiceStatus{types.InvoiceStatusSent, types.InvoiceStatusViewed, types.InvoiceStatusVoid}
			for _, s := range allowed {
				if string(s) == c.Status {
					return nil
				}
			}
			return invalidAction(a.Type, "Invoices can be moved to sent, viewed or void")
		case types.EntityTypeTask:
			return types.TaskStatus(c.Status).Validate()
		}
		return nil

	case types.ActionWebhook:
		c := a.Webhook
		if c == nil {
			return invalidAction(a.Type, "webhook config is required")
		}
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalidAction(a.Type, "Webhook URL must be an absolute http or https URL")
		}
		if c.Secret == "" {
			return invalidAction(a.Type, "Webhook secret is required to sign deliveries")
		}
		return nil

	case types.ActionNotify:
		c := a.Notify
		if c == nil {
			return invalidAction(a.Type, "notify config is required")
		}
		if c.RecipientID == "" && c.RecipientField == "" {
			return invalidAction(a.Type, "Provide a recipient id or a recipient field")
		}
		if c.RecipientField != "" {
			if err := field(c.RecipientField, FieldKindString); err != nil {
				return err
			}
		}
		if c.Title == "" {
			return invalidAction(a.Type, "Notification title is required")
		}
		if err := validateTemplate(c.Title, schema); err != nil {
			return err
		}
		return validateTemplate(c.Body, schema)

	case types.ActionCreateInvoice:
		c := a.CreateInvoice
		if c == nil {
			return invalidAction(a.Type, "create_invoice config is required")
		}
		if err := field("client_id", FieldKindString); err != nil {
			return invalidAction(a.Type, "create_invoice needs an event that names a client")
		}
		if c.AmountField != "" {
			if err := field(c.AmountField, FieldKindNumber); err != nil {
				return err
			}
		} else if !c.Amount.IsPositive() {
			return invalidAction(a.Type, "Provide a positive amount or an amount field")
		}
		if c.Description == "" {
			return invalidAction(a.Type, "Invoice line description is required")
		}
		if c.DueDays < 0 || c.TaxRate.IsNegative() {
			return invalidAction(a.Type, "due_days and tax_rate must not be negative")
		}
		return validateTemplate(c.Description, schema)
	}
	return nil
}
