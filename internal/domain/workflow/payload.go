package workflow

import (
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Payload is the typed body of one event type
type Payload interface {
	// SourceEntityID identifies the business record the event is about
	SourceEntityID() string
	// Fields exposes the payload to conditions and templates
	Fields() Fields
	Validate() error
}

// newPayload returns an empty payload of the shape an event type carries
func newPayload(eventType types.WorkflowEventType) (Payload, error) {
	switch eventType {
	case types.EventProposalAccepted, types.EventProposalRejected:
		return &ProposalPayload{}, nil
	case types.EventContractSigned:
		return &ContractSignedPayload{}, nil
	case types.EventMilestoneCompleted:
		return &MilestoneCompletedPayload{}, nil
	case types.EventInvoiceCreated, types.EventInvoiceSent, types.EventInvoicePaid, types.EventInvoiceOverdue:
		return &InvoicePayload{}, nil
	case types.EventDeliverableApproved:
		return &DeliverableApprovedPayload{}, nil
	case types.EventDocumentRequestApproved:
		return &DocumentRequestApprovedPayload{}, nil
	case types.EventQuestionnaireCompleted:
		return &QuestionnaireCompletedPayload{}, nil
	}
	return nil, eventType.Validate()
}

// Schema lists the fields conditions may reference for an event type
func Schema(eventType types.WorkflowEventType) (map[string]FieldKind, error) {
	p, err := newPayload(eventType)
	if err != nil {
		return nil, err
	}
	return p.Fields().Schema(), nil
}

func requireID(field, value string) error {
	if value == "" {
		return ierr.NewErrorf("%s is required", field).
			WithHintf("Event payload must include %s", field).
			Mark(ierr.ErrValidation)
	}
	return nil
}

type ProposalPayload struct {
	ProposalID string          `json:"proposal_id"`
	ProjectID  *string         `json:"project_id,omitempty"`
	ClientID   *string         `json:"client_id,omitempty"`
	LeadID     *string         `json:"lead_id,omitempty"`
	Title      string          `json:"title,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

func (p *ProposalPayload) SourceEntityID() string { return p.ProposalID }

func (p *ProposalPayload) Validate() error { return requireID("proposal_id", p.ProposalID) }

func (p *ProposalPayload) Fields() Fields {
	return Fields{
		"proposal_id": StringValue(p.ProposalID),
		"project_id":  optionalString(p.ProjectID),
		"client_id":   optionalString(p.ClientID),
		"lead_id":     optionalString(p.LeadID),
		"title":       StringValue(p.Title),
		"amount":      NumberValue(p.Amount),
		"currency":    StringValue(p.Currency),
		"reason":      StringValue(p.Reason),
	}
}

type ContractSignedPayload struct {
	ContractID string          `json:"contract_id"`
	ProjectID  *string         `json:"project_id,omitempty"`
	ClientID   *string         `json:"client_id,omitempty"`
	Title      string          `json:"title,omitempty"`
	SignedBy   string          `json:"signed_by,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
}

func (p *ContractSignedPayload) SourceEntityID() string { return p.ContractID }

func (p *ContractSignedPayload) Validate() error { return requireID("contract_id", p.ContractID) }

func (p *ContractSignedPayload) Fields() Fields {
	return Fields{
		"contract_id": StringValue(p.ContractID),
		"project_id":  optionalString(p.ProjectID),
		"client_id":   optionalString(p.ClientID),
		"title":       StringValue(p.Title),
		"signed_by":   StringValue(p.SignedBy),
		"amount":      NumberValue(p.Amount),
		"currency":    StringValue(p.Currency),
	}
}

type MilestoneCompletedPayload struct {
	MilestoneID           string          `json:"milestone_id"`
	ProjectID             *string         `json:"project_id,omitempty"`
	ClientID              *string         `json:"client_id,omitempty"`
	Title                 string          `json:"title,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency,omitempty"`
	HasPaymentDeliverable bool            `json:"has_payment_deliverable"`
	BillingEmail          string          `json:"billing_email,omitempty"`
}

func (p *MilestoneCompletedPayload) SourceEntityID() string { return p.MilestoneID }

func (p *MilestoneCompletedPayload) Validate() error { return requireID("milestone_id", p.MilestoneID) }

func (p *MilestoneCompletedPayload) Fields() Fields {
	return Fields{
		"milestone_id":            StringValue(p.MilestoneID),
		"project_id":              optionalString(p.ProjectID),
		"client_id":               optionalString(p.ClientID),
		"title":                   StringValue(p.Title),
		"amount":                  NumberValue(p.Amount),
		"currency":                StringValue(p.Currency),
		"has_payment_deliverable": BoolValue(p.HasPaymentDeliverable),
		"billing_email":           StringValue(p.BillingEmail),
	}
}

// InvoicePayload is carried by every invoice.* event
type InvoicePayload struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      string          `json:"client_id"`
	ProjectID     *string         `json:"project_id,omitempty"`
	MilestoneID   *string         `json:"milestone_id,omitempty"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	DueDate       string          `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
	BillingEmail  string          `json:"billing_email,omitempty"`
}

func (p *InvoicePayload) SourceEntityID() string { return p.InvoiceID }

func (p *InvoicePayload) Validate() error { return requireID("invoice_id", p.InvoiceID) }

func (p *InvoicePayload) Fields() Fields {
	return Fields{
		"invoice_id":     StringValue(p.InvoiceID),
		"invoice_number": StringValue(p.InvoiceNumber),
		"client_id":      StringValue(p.ClientID),
		"project_id":     optionalString(p.ProjectID),
		"milestone_id":   optionalString(p.MilestoneID),
		"status":         StringValue(p.Status),
		"currency":       StringValue(p.Currency),
		"total":          NumberValue(p.Total),
		"amount_paid":    NumberValue(p.AmountPaid),
		"amount_due":     NumberValue(p.AmountDue),
		"due_date":       StringValue(p.DueDate),
		"days_overdue":   IntValue(p.DaysOverdue),
		"billing_email":  StringValue(p.BillingEmail),
	}
}

type DeliverableApprovedPayload struct {
	DeliverableID string  `json:"deliverable_id"`
	ProjectID     *string `json:"project_id,omitempty"`
	ClientID      *string `json:"client_id,omitempty"`
	Title         string  `json:"title,omitempty"`
	ApprovedBy    string  `json:"approved_by,omitempty"`
}

func (p *DeliverableApprovedPayload) SourceEntityID() string { return p.DeliverableID }

func (p *DeliverableApprovedPayload) Validate() error {
	return requireID("deliverable_id", p.DeliverableID)
}

func (p *DeliverableApprovedPayload) Fields() Fields {
	return Fields{
		"deliverable_id": StringValue(p.DeliverableID),
		"project_id":     optionalString(p.ProjectID),
		"client_id":      optionalString(p.ClientID),
		"title":          StringValue(p.Title),
		"approved_by":    StringValue(p.ApprovedBy),
	}
}

type DocumentRequestApprovedPayload struct {
	DocumentRequestID string  `json:"document_request_id"`
	ProjectID         *string `json:"project_id,omitempty"`
	ClientID          *string `json:"client_id,omitempty"`
	Title             string  `json:"title,omitempty"`
}

func (p *DocumentRequestApprovedPayload) SourceEntityID() string { return p.DocumentRequestID }

func (p *DocumentRequestApprovedPayload) Validate() error {
	return requireID("document_request_id", p.DocumentRequestID)
}

func (p *DocumentRequestApprovedPayload) Fields() Fields {
	return Fields{
		"document_request_id": StringValue(p.DocumentRequestID),
		"project_id":          optionalString(p.ProjectID),
		"client_id":           optionalString(p.ClientID),
		"title":               StringValue(p.Title),
	}
}

type QuestionnaireCompletedPayload struct {
	QuestionnaireID string  `json:"questionnaire_id"`
	ProjectID       *string `json:"project_id,omitempty"`
	ClientID        *string `json:"client_id,omitempty"`
	LeadID          *string `json:"lead_id,omitempty"`
	Title           string  `json:"title,omitempty"`
	RespondentEmail string  `json:"respondent_email,omitempty"`
}

func (p *QuestionnaireCompletedPayload) SourceEntityID() string { return p.QuestionnaireID }

func (p *QuestionnaireCompletedPayload) Validate() error {
	return requireID("questionnaire_id", p.QuestionnaireID)
}

func (p *QuestionnaireCompletedPayload) Fields() Fields {
	return Fields{
		"questionnaire_id": StringValue(p.QuestionnaireID),
		"project_id":       optionalString(p.ProjectID),
		"client_id":        optionalString(p.ClientID),
		"lead_id":          optionalString(p.LeadID),
		"title":            StringValue(p.Title),
		"respondent_email": StringValue(p.RespondentEmail),
	}
}
