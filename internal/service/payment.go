package service

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/credit"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/payment"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PaymentService records payments and credits and reports receivables
type PaymentService interface {
	RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error)
	ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error)
	// ApplyCredit draws credit from a paid deposit onto targetID
	ApplyCredit(ctx context.Context, targetID string, req dto.ApplyCreditRequest) (*dto.ApplyCreditResponse, error)
	AvailableCredit(ctx context.Context, invoiceID string) (*dto.AvailableCreditResponse, error)
	Aging(ctx context.Context, req dto.AgingRequest) (*dto.AgingResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := req.ToPayment(ctx, invoiceID)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		return s.applyPayment(ctx, inv, p)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("payment recorded",
		"payment_id", p.ID,
		"invoice_id", inv.ID,
		"amount", p.Amount,
		"method", p.Method,
		"amount_paid", inv.AmountPaid,
		"status", inv.InvoiceStatus,
	)
	return &dto.RecordPaymentResponse{
		Payment: dto.NewPaymentResponse(p),
		Invoice: dto.NewInvoiceResponse(inv),
	}, nil
}

// applyPayment appends p to the locked invoice, derives amountPaid from the full payment
// history and fires the partial or paid transition. Overpayments fail with ErrConflict.
func (s *paymentService) applyPayment(ctx context.Context, inv *invoice.Invoice, p *payment.Payment) error {
	if !inv.InvoiceStatus.IsOpen() {
		return ierr.NewErrorf("payments can not be recorded on %s invoices", inv.InvoiceStatus).
			WithHintf("Invoice is %s, payments are accepted once it is sent", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			Mark(ierr.ErrConflict)
	}

	history, err := s.PaymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	paid := payment.Sum(history)
	if paid.Add(p.Amount).GreaterThan(inv.Total) {
		return ierr.NewError("payment exceeds the amount due").
			WithHintf("Amount due is %s", inv.Total.Sub(paid).StringFixed(types.MoneyPrecision)).
			WithReportableDetails(map[string]any{
				"invoice_id":  inv.ID,
				"total":       inv.Total,
				"amount_paid": paid,
				"amount":      p.Amount,
			}).
			Mark(ierr.ErrConflict)
	}

	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return err
	}
	inv.AmountPaid = payment.Sum(append(history, p))

	if err := inv.TransitionTo(inv.PaymentTransition(inv.AmountPaid), time.Now()); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		s.EventPublisher.Publish(ctx, workflowInvoiceEvent(types.EventInvoicePaid, inv, time.Now()))
	}
	return nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error) {
	if _, err := s.InvoiceRepo.Get(ctx, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &dto.ListPaymentsResponse{
		InvoiceID:  invoiceID,
		Items:      lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse { return dto.NewPaymentResponse(p) }),
		AmountPaid: payment.Sum(payments),
	}, nil
}

func (s *paymentService) ApplyCredit(ctx context.Context, targetID string, req dto.ApplyCreditRequest) (*dto.ApplyCreditResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &credit.Credit{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT),
		SourceInvoiceID: req.SourceInvoiceID,
		TargetInvoiceID: targetID,
		Amount:          req.Amount,
		CreatedAt:       now,
		CreatedBy:       types.GetUserID(ctx),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p := &payment.Payment{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:  targetID,
		Amount:     req.Amount,
		Method:     types.PaymentMethodCredit,
		CreditID:   &c.ID,
		RecordedAt: now,
		CreatedAt:  now,
		CreatedBy:  c.CreatedBy,
	}
	c.PaymentID = p.ID
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var target *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// the source row lock serializes every application drawn from the same deposit
		source, err := s.InvoiceRepo.GetForUpdate(ctx, c.SourceInvoiceID)
		if err != nil {
			return err
		}
		available, err := s.availableCredit(ctx, source)
		if err != nil {
			return err
		}
		if c.Amount.GreaterThan(available) {
			return ierr.NewError("credit exceeds the available deposit balance").
				WithHintf("Available credit is %s", available.StringFixed(types.MoneyPrecision)).
				WithReportableDetails(map[string]any{
					"source_invoice_id": source.ID,
					"available":         available,
					"amount":            c.Amount,
				}).
				Mark(ierr.ErrConflict)
		}

		target, err = s.InvoiceRepo.GetForUpdate(ctx, targetID)
		if err != nil {
			return err
		}
		if err := s.applyPayment(ctx, target, p); err != nil {
			return err
		}
		return s.CreditRepo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("credit applied",
		"credit_id", c.ID,
		"source_invoice_id", c.SourceInvoiceID,
		"target_invoice_id", c.TargetInvoiceID,
		"amount", c.Amount,
	)
	return &dto.ApplyCreditResponse{
		Credit:  c,
		Payment: dto.NewPaymentResponse(p),
		Invoice: dto.NewInvoiceResponse(target),
	}, nil
}

// availableCredit is the unapplied paid amount of a deposit invoice. Invoices that are not
// paid or partially paid deposits have none to give.
func (s *paymentService) availableCredit(ctx context.Context, source *invoice.Invoice) (decimal.Decimal, error) {
	if !source.IsDeposit {
		return decimal.Zero, ierr.NewError("source invoice is not a deposit").
			WithHint("Credit can only be drawn from deposit invoices").
			WithReportableDetails(map[string]any{"source_invoice_id": source.ID}).
			Mark(ierr.ErrValidation)
	}
	if source.InvoiceStatus != types.InvoiceStatusPaid && source.InvoiceStatus != types.InvoiceStatusPartial {
		return decimal.Zero, ierr.NewErrorf("deposit invoice is %s", source.InvoiceStatus).
			WithHint("Credit can only be drawn from a paid deposit").
			WithReportableDetails(map[string]any{
				"source_invoice_id": source.ID,
				"status":            source.InvoiceStatus,
			}).
			Mark(ierr.ErrConflict)
	}
	applied, err := s.CreditRepo.ListBySource(ctx, source.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return credit.Available(source.AmountPaid, applied), nil
}

func (s *paymentService) AvailableCredit(ctx context.Context, invoiceID string) (*dto.AvailableCreditResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := &dto.AvailableCreditResponse{
		InvoiceID:  inv.ID,
		AmountPaid: inv.AmountPaid,
		Applied:    decimal.Zero,
		Available:  decimal.Zero,
	}
	if !inv.IsDeposit {
		return resp, nil
	}
	applied, err := s.CreditRepo.ListBySource(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range applied {
		resp.Applied = resp.Applied.Add(c.Amount)
	}
	resp.Available = credit.Available(inv.AmountPaid, applied)
	return resp, nil
}

func (s *paymentService) Aging(ctx context.Context, req dto.AgingRequest) (*dto.AgingResponse, error) {
	asOf, err := req.AsOfDate()
	if err != nil {
		return nil, err
	}

	filter := types.NewNoLimitInvoiceFilter()
	filter.ClientID = req.ClientID
	filter.ProjectID = req.ProjectID
	filter.InvoiceStatus = types.InvoiceOpenStatuses
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	buckets := make(map[types.AgingBucket]*dto.AgingBucketSummary, len(types.AgingBuckets))
	for _, b := range types.AgingBuckets {
		buckets[b] = &dto.AgingBucketSummary{Bucket: b, AmountDue: decimal.Zero}
	}

	resp := &dto.AgingResponse{
		AsOf:           types.FormatDate(asOf),
		TotalAmountDue: decimal.Zero,
		Invoices:       []dto.AgingEntry{},
	}
	for _, inv := range invoices {
		due := inv.GetRemainingAmount()
		if !due.IsPositive() {
			continue
		}
		days := types.DaysBetween(inv.DueDate, asOf)
		bucket := types.AgingBucketFor(days)

		resp.Invoices = append(resp.Invoices, dto.AgingEntry{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			ClientID:      inv.ClientID,
			InvoiceStatus: inv.InvoiceStatus,
			DueDate:       types.FormatDate(inv.DueDate),
			DaysPastDue:   max(days, 0),
			Bucket:        bucket,
			Currency:      inv.Currency,
			AmountDue:     due,
		})
		buckets[bucket].Count++
		buckets[bucket].AmountDue = buckets[bucket].AmountDue.Add(due)
		resp.TotalAmountDue = resp.TotalAmountDue.Add(due)
	}
	for _, b := range types.AgingBuckets {
		resp.Buckets = append(resp.Buckets, *buckets[b])
	}
	return resp, nil
}
