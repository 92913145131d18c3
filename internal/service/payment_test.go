package service

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	invoiceService InvoiceService
	paymentService PaymentService
	params         ServiceParams
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	newSubscribedEngine(s.params)
	s.invoiceService = NewInvoiceService(s.params)
	s.paymentService = NewPaymentService(s.params)
}

func (s *PaymentServiceSuite) sentInvoice(amount string, deposit bool) *dto.InvoiceResponse {
	req := invoiceRequest("client_1", amount)
	req.IsDeposit = deposit
	created, err := s.invoiceService.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	sent, err := s.invoiceService.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	return sent
}

func (s *PaymentServiceSuite) pay(invoiceID, amount string) (*dto.RecordPaymentResponse, error) {
	return s.paymentService.RecordPayment(s.GetContext(), invoiceID, dto.RecordPaymentRequest{
		Amount: dec(amount),
		Method: types.PaymentMethodBankTransfer,
	})
}

func (s *PaymentServiceSuite) TestPartialThenFullPayment() {
	inv := s.sentInvoice("500", false)

	resp, err := s.pay(inv.ID, "300")
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPartial, resp.Invoice.InvoiceStatus)
	s.True(dec("300").Equal(resp.Invoice.AmountPaid))
	s.True(dec("200").Equal(resp.Invoice.AmountDue))

	resp, err = s.pay(inv.ID, "200")
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.Invoice.InvoiceStatus)
	s.True(dec("500").Equal(resp.Invoice.AmountPaid))
	s.NotNil(resp.Invoice.PaidAt)

	filter := types.NewWorkflowEventLogFilter()
	filter.EventType = types.EventInvoicePaid
	logs, err := s.GetStores().EventLogRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(inv.ID, logs[0].SourceEntityID)

	payments, err := s.paymentService.ListPayments(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Len(payments.Items, 2)
	s.True(dec("500").Equal(payments.AmountPaid))
}

func (s *PaymentServiceSuite) TestOverpaymentIsRejected() {
	inv := s.sentInvoice("500", false)

	_, err := s.pay(inv.ID, "500.01")
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	got, err := s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, got.InvoiceStatus)
	s.True(got.AmountPaid.IsZero())
}

func (s *PaymentServiceSuite) TestPaymentOnDraftIsRejected() {
	created, err := s.invoiceService.CreateInvoice(s.GetContext(), invoiceRequest("client_1", "100"))
	s.Require().NoError(err)

	_, err = s.pay(created.ID, "50")
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestCreditPaymentMethodIsRejected() {
	inv := s.sentInvoice("100", false)

	_, err := s.paymentService.RecordPayment(s.GetContext(), inv.ID, dto.RecordPaymentRequest{
		Amount: dec("50"),
		Method: types.PaymentMethodCredit,
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestApplyCreditFromPaidDeposit() {
	deposit := s.sentInvoice("1000", true)
	_, err := s.pay(deposit.ID, "1000")
	s.Require().NoError(err)

	target := s.sentInvoice("600", false)
	resp, err := s.paymentService.ApplyCredit(s.GetContext(), target.ID, dto.ApplyCreditRequest{
		SourceInvoiceID: deposit.ID,
		Amount:          dec("600"),
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentMethodCredit, resp.Payment.Method)
	s.Equal(types.InvoiceStatusPaid, resp.Invoice.InvoiceStatus)

	available, err := s.paymentService.AvailableCredit(s.GetContext(), deposit.ID)
	s.Require().NoError(err)
	s.True(dec("600").Equal(available.Applied))
	s.True(dec("400").Equal(available.Available))
}

func (s *PaymentServiceSuite) TestApplyCreditFromNonDepositIsRejected() {
	source := s.sentInvoice("1000", false)
	_, err := s.pay(source.ID, "1000")
	s.Require().NoError(err)
	target := s.sentInvoice("100", false)

	_, err = s.paymentService.ApplyCredit(s.GetContext(), target.ID, dto.ApplyCreditRequest{
		SourceInvoiceID: source.ID,
		Amount:          dec("100"),
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestConcurrentCreditsNeverOverdrawDeposit() {
	deposit := s.sentInvoice("1000", true)
	_, err := s.pay(deposit.ID, "1000")
	s.Require().NoError(err)

	targets := []*dto.InvoiceResponse{s.sentInvoice("600", false), s.sentInvoice("600", false)}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.paymentService.ApplyCredit(s.GetContext(), target.ID, dto.ApplyCreditRequest{
				SourceInvoiceID: deposit.ID,
				Amount:          dec("600"),
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(ierr.IsConflict(err), "unexpected error: %v", err)
	}
	s.Equal(1, succeeded)

	available, err := s.paymentService.AvailableCredit(s.GetContext(), deposit.ID)
	s.Require().NoError(err)
	s.True(dec("400").Equal(available.Available))
}

func (s *PaymentServiceSuite) TestAging() {
	inv := s.sentInvoice("250", false)
	_, err := s.pay(inv.ID, "50")
	s.Require().NoError(err)

	resp, err := s.paymentService.Aging(s.GetContext(), dto.AgingRequest{})
	s.Require().NoError(err)
	s.Require().Len(resp.Invoices, 1)
	s.Equal(types.AgingBucketCurrent, resp.Invoices[0].Bucket)
	s.True(dec("200").Equal(resp.TotalAmountDue))
}

// randomAmount picks a cent amount up to 130% of limit so some operations overshoot
func randomAmount(rng *rand.Rand, limit decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromFloat(rng.Float64() * 1.3)
	amount := limit.Mul(factor).Round(types.MoneyPrecision)
	if !amount.IsPositive() {
		return dec("0.01")
	}
	return amount
}

func (s *PaymentServiceSuite) TestRandomPaymentSequenceKeepsBalance() {
	deposit := s.sentInvoice("5000", true)
	_, err := s.pay(deposit.ID, "5000")
	s.Require().NoError(err)

	req := invoiceRequest("client_1", "1000")
	issued := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	req.IssuedDate = &issued
	req.DueDate = &due
	req.LateFeePolicy = &invoice.LateFeePolicy{Type: types.LateFeePolicyDailyPercentage, Value: dec("0.002")}
	created, err := s.invoiceService.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	_, err = s.invoiceService.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	lateFees := NewLateFeeService(s.params)
	rng := rand.New(rand.NewSource(20260301))
	asOf := due

	for step := 0; step < 60; step++ {
		before, err := s.invoiceService.GetInvoice(s.GetContext(), created.ID)
		s.Require().NoError(err)
		remaining := before.Total.Sub(before.AmountPaid)

		var opErr error
		switch rng.Intn(3) {
		case 0:
			_, opErr = s.pay(created.ID, randomAmount(rng, remaining).String())
		case 1:
			_, opErr = s.paymentService.ApplyCredit(s.GetContext(), created.ID, dto.ApplyCreditRequest{
				SourceInvoiceID: deposit.ID,
				Amount:          randomAmount(rng, remaining),
			})
		default:
			asOf = asOf.AddDate(0, 0, 1+rng.Intn(3))
			_, opErr = lateFees.ProcessLateFees(s.GetContext(), asOf)
		}
		if opErr != nil {
			s.True(ierr.IsConflict(opErr), "step %d: unexpected error: %v", step, opErr)
		}

		got, err := s.invoiceService.GetInvoice(s.GetContext(), created.ID)
		s.Require().NoError(err)
		s.True(got.AmountPaid.LessThanOrEqual(got.Total),
			"step %d: paid %s exceeds total %s", step, got.AmountPaid, got.Total)
		if opErr != nil {
			s.True(before.AmountPaid.Equal(got.AmountPaid), "step %d: rejected operation changed amount paid", step)
		}

		payments, err := s.paymentService.ListPayments(s.GetContext(), created.ID)
		s.Require().NoError(err)
		sum := decimal.Zero
		for _, p := range payments.Items {
			sum = sum.Add(p.Amount)
		}
		s.True(sum.Equal(got.AmountPaid), "step %d: payments sum %s, amount paid %s", step, sum, got.AmountPaid)
		if got.AmountPaid.Equal(got.Total) {
			s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus, "step %d", step)
		}
	}

	available, err := s.paymentService.AvailableCredit(s.GetContext(), deposit.ID)
	s.Require().NoError(err)
	s.False(available.Available.IsNegative())
}
