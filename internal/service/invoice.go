package service

import (
	"context"
	"fmt"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/email"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) (*dto.DeleteInvoiceResponse, error)
	SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkViewed(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	// UpdateStatus moves an invoice to sent, viewed or void on behalf of a workflow action
	UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus) (*invoice.Invoice, error)
	// ProcessOverdue opens an overdue episode for every open invoice past due on asOf
	ProcessOverdue(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	inv, err := s.createInvoice(ctx, &req)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

// createInvoice stores a draft built from req with the next invoice number and publishes
// invoice.created once the surrounding transaction commits. A request whose idempotency
// key was already used fails with ErrConflict.
func (s *invoiceService) createInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*invoice.Invoice, error) {
	inv := req.ToInvoice(ctx)
	if req.LateFeePolicy == nil {
		inv.LateFeePolicy = s.defaultLateFeePolicy()
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		yearMonth := invoice.SequenceYearMonth(inv.CreatedAt)
		seq, err := s.InvoiceRepo.NextSequenceValue(ctx, yearMonth)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = invoice.FormatInvoiceNumber(yearMonth, seq)

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			if ierr.IsAlreadyExists(err) && inv.IdempotencyKey != nil {
				return ierr.NewError("invoice already generated").
					WithHint("An invoice was already generated for this period").
					WithReportableDetails(map[string]any{
						"idempotency_key": *inv.IdempotencyKey,
					}).
					Mark(ierr.ErrConflict)
			}
			return err
		}

		s.publishInvoiceEvent(ctx, types.EventInvoiceCreated, inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"client_id", inv.ClientID,
		"source", inv.Source,
		"total", inv.Total,
	)
	return inv, nil
}

func (s *invoiceService) defaultLateFeePolicy() invoice.LateFeePolicy {
	cfg := s.Config.LateFee
	if cfg.DefaultPolicy == "" {
		return invoice.LateFeePolicy{Type: types.LateFeePolicyNone}
	}
	value, err := decimal.NewFromString(lo.Ternary(cfg.DefaultValue == "", "0", cfg.DefaultValue))
	if err != nil {
		s.Logger.Warnw("ignoring invalid default late fee value",
			"value", cfg.DefaultValue,
			"error", err,
		)
		return invoice.LateFeePolicy{Type: types.LateFeePolicyNone}
	}
	return invoice.LateFeePolicy{Type: cfg.DefaultPolicy, Value: value}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice_id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv)
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.InvoiceStatus != types.InvoiceStatusDraft {
			return ierr.NewError("only draft invoices can be edited").
				WithHintf("Invoice is %s, only drafts can be edited", inv.InvoiceStatus).
				WithReportableDetails(map[string]any{
					"invoice_id": inv.ID,
					"status":     inv.InvoiceStatus,
				}).
				Mark(ierr.ErrConflict)
		}

		replaced := req.Apply(ctx, inv)
		if err := inv.Validate(); err != nil {
			return err
		}
		if replaced {
			if err := s.InvoiceRepo.ReplaceLineItems(ctx, inv.ID, inv.LineItems); err != nil {
				return err
			}
		}
		return s.InvoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice updated", "invoice_id", inv.ID, "total", inv.Total)
	return dto.NewInvoiceResponse(inv), nil
}

// DeleteInvoice deletes drafts, voids open invoices and archives void ones. Paid and
// cancelled invoices can not be deleted.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) (*dto.DeleteInvoiceResponse, error) {
	resp := &dto.DeleteInvoiceResponse{InvoiceID: id}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case inv.InvoiceStatus == types.InvoiceStatusDraft:
			if err := inv.TransitionTo(invoice.TransitionCancel, time.Now()); err != nil {
				return err
			}
			resp.Action = dto.DeleteActionDeleted
			return s.InvoiceRepo.Delete(ctx, inv.ID)

		case inv.InvoiceStatus.IsOpen():
			if err := inv.TransitionTo(invoice.TransitionVoid, time.Now()); err != nil {
				return err
			}
			resp.Action = dto.DeleteActionVoided

		case inv.InvoiceStatus == types.InvoiceStatusVoid:
			if inv.IsDeleted() {
				return ierr.NewError("invoice already archived").
					WithHint("Invoice was already deleted").
					Mark(ierr.ErrNotFound)
			}
			inv.Status = types.StatusDeleted
			resp.Action = dto.DeleteActionArchived

		default:
			return ierr.NewErrorf("%s invoices can not be deleted", inv.InvoiceStatus).
				WithHintf("Invoice is %s and can not be deleted", inv.InvoiceStatus).
				WithReportableDetails(map[string]any{
					"invoice_id": inv.ID,
					"status":     inv.InvoiceStatus,
				}).
				Mark(ierr.ErrConflict)
		}

		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		resp.Invoice = dto.NewInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice deleted", "invoice_id", id, "action", resp.Action)
	return resp, nil
}

func (s *invoiceService) SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, invoice.TransitionSend, nil)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

// viewedOrLater are the statuses a client portal view leaves untouched
var viewedOrLater = []types.InvoiceStatus{
	types.InvoiceStatusViewed,
	types.InvoiceStatusPartial,
	types.InvoiceStatusPaid,
}

func (s *invoiceService) MarkViewed(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, invoice.TransitionView, func(inv *invoice.Invoice) bool {
		return lo.Contains(viewedOrLater, inv.InvoiceStatus)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, invoice.TransitionVoid, nil)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus) (*invoice.Invoice, error) {
	var t invoice.Transition
	switch status {
	case types.InvoiceStatusSent:
		t = invoice.TransitionSend
	case types.InvoiceStatusViewed:
		t = invoice.TransitionView
	case types.InvoiceStatusVoid:
		t = invoice.TransitionVoid
	default:
		return nil, ierr.NewErrorf("invoices can not be moved to %s directly", status).
			WithHint("Invoices can be moved to sent, viewed or void").
			Mark(ierr.ErrValidation)
	}
	return s.transition(ctx, id, t, nil)
}

// transition fires t on the locked invoice and persists it. skip, when set, turns the
// call into a no-op for invoices it matches.
func (s *invoiceService) transition(
	ctx context.Context,
	id string,
	t invoice.Transition,
	skip func(inv *invoice.Invoice) bool,
) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if skip != nil && skip(inv) {
			return nil
		}
		if err := inv.TransitionTo(t, time.Now()); err != nil {
			return err
		}
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		if t == invoice.TransitionSend {
			s.publishInvoiceEvent(ctx, types.EventInvoiceSent, inv)
			s.emailInvoice(ctx, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice transitioned",
		"invoice_id", inv.ID,
		"transition", t,
		"status", inv.InvoiceStatus,
	)
	return inv, nil
}

// emailInvoice mails a sent invoice to its billing email after commit
func (s *invoiceService) emailInvoice(ctx context.Context, inv *invoice.Invoice) {
	if inv.BillingEmail == nil || *inv.BillingEmail == "" {
		return
	}
	msg := email.Message{
		ToAddress: *inv.BillingEmail,
		Subject:   fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		Text: fmt.Sprintf("Invoice %s for %s %s is due on %s.",
			inv.InvoiceNumber,
			inv.Total.StringFixed(types.MoneyPrecision),
			inv.Currency,
			types.FormatDate(inv.DueDate),
		),
	}
	s.DB.AfterCommit(ctx, func(ctx context.Context) {
		if _, err := s.EmailSender.Send(ctx, msg); err != nil {
			s.Logger.Errorw("failed to email invoice",
				"invoice_id", inv.ID,
				"to", msg.ToAddress,
				"error", err,
			)
		}
	})
}

func (s *invoiceService) ProcessOverdue(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error) {
	asOf = types.ToDate(asOf)
	filter := types.NewNoLimitInvoiceFilter()
	filter.OverdueOnly = true
	filter.DueBefore = &asOf

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &dto.BatchSummary{}
	for _, candidate := range invoices {
		summary.Processed++
		if inOverdueEpisode(candidate) {
			summary.Skipped++
			continue
		}

		opened := false
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			inv, err := s.InvoiceRepo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !inv.IsOverdue(asOf) || inOverdueEpisode(inv) {
				return nil
			}
			since := types.ToDate(inv.DueDate)
			inv.OverdueSince = &since
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				return err
			}
			s.EventPublisher.Publish(ctx, workflow.NewEvent(types.EventInvoiceOverdue, newInvoicePayload(inv, asOf), time.Now()))
			opened = true
			return nil
		})
		switch {
		case err != nil:
			summary.Fail(candidate.ID, err)
		case opened:
			summary.Updated++
		default:
			summary.Skipped++
		}
	}

	s.Logger.Infow("overdue invoices processed", summary.LogFields()...)
	return summary, nil
}

// inOverdueEpisode reports whether the current overdue episode of inv was already opened
func inOverdueEpisode(inv *invoice.Invoice) bool {
	return inv.OverdueSince != nil && types.FormatDate(*inv.OverdueSince) == types.FormatDate(inv.DueDate)
}

func (s *invoiceService) publishInvoiceEvent(ctx context.Context, eventType types.WorkflowEventType, inv *invoice.Invoice) {
	s.EventPublisher.Publish(ctx, workflowInvoiceEvent(eventType, inv, time.Now()))
}

func workflowInvoiceEvent(eventType types.WorkflowEventType, inv *invoice.Invoice, at time.Time) *workflow.Event {
	return workflow.NewEvent(eventType, newInvoicePayload(inv, at), at)
}

// newInvoicePayload snapshots inv for an invoice.* event as seen on asOf
func newInvoicePayload(inv *invoice.Invoice, asOf time.Time) *workflow.InvoicePayload {
	p := &workflow.InvoicePayload{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		ProjectID:     inv.ProjectID,
		MilestoneID:   inv.MilestoneID,
		Status:        string(inv.InvoiceStatus),
		Currency:      inv.Currency,
		Total:         inv.Total,
		AmountPaid:    inv.AmountPaid,
		AmountDue:     inv.GetRemainingAmount(),
		DueDate:       types.FormatDate(inv.DueDate),
		BillingEmail:  lo.FromPtr(inv.BillingEmail),
	}
	if inv.IsOverdue(asOf) {
		p.DaysOverdue = inv.DaysOverdue(asOf)
	}
	return p
}
