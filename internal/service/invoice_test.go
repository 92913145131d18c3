package service

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        InvoiceService
	paymentService PaymentService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	newSubscribedEngine(params)
	s.service = NewInvoiceService(params)
	s.paymentService = NewPaymentService(params)
}

func (s *InvoiceServiceSuite) create(req dto.CreateInvoiceRequest) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoiceComputesTotals() {
	req := invoiceRequest("client_1", "100")
	req.LineItems = append(req.LineItems, dto.LineItemRequest{
		Description: "Hosting",
		Quantity:    dec("3"),
		UnitRate:    dec("33.335"),
	})
	req.TaxRate = dec("10")

	resp := s.create(req)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Regexp(`^INV-\d{6}-\d{5}$`, resp.InvoiceNumber)
	s.Len(resp.LineItems, 2)
	s.True(dec("200.01").Equal(resp.Subtotal), "subtotal %s", resp.Subtotal)
	s.True(resp.Total.GreaterThan(resp.Subtotal))
}

func (s *InvoiceServiceSuite) TestInvoiceNumbersAreSequential() {
	first := s.create(invoiceRequest("client_1", "10"))
	second := s.create(invoiceRequest("client_1", "10"))
	s.NotEqual(first.InvoiceNumber, second.InvoiceNumber)
	s.Less(first.InvoiceNumber, second.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestSendInvoiceEmailsBillingContact() {
	req := invoiceRequest("client_1", "100")
	req.BillingEmail = lo.ToPtr("ap@client.example")
	created := s.create(req)

	sent, err := s.service.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotNil(sent.SentAt)

	messages := s.GetEmailSender().Messages()
	s.Require().Len(messages, 1)
	s.Equal("ap@client.example", messages[0].ToAddress)
	s.Contains(messages[0].Subject, created.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestMarkViewedIsIdempotent() {
	created := s.create(invoiceRequest("client_1", "100"))
	_, err := s.service.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	viewed, err := s.service.MarkViewed(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusViewed, viewed.InvoiceStatus)
	firstView := viewed.ViewedAt

	again, err := s.service.MarkViewed(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusViewed, again.InvoiceStatus)
	s.Equal(firstView.Unix(), again.ViewedAt.Unix())
}

func (s *InvoiceServiceSuite) TestVoidRejectsDraftAndPaidInvoices() {
	draft := s.create(invoiceRequest("client_1", "100"))
	_, err := s.service.VoidInvoice(s.GetContext(), draft.ID)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	paid := s.create(invoiceRequest("client_1", "100"))
	_, err = s.service.SendInvoice(s.GetContext(), paid.ID)
	s.Require().NoError(err)
	_, err = s.paymentService.RecordPayment(s.GetContext(), paid.ID, dto.RecordPaymentRequest{
		Amount: dec("100"),
		Method: types.PaymentMethodCard,
	})
	s.Require().NoError(err)

	_, err = s.service.VoidInvoice(s.GetContext(), paid.ID)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	got, err := s.service.GetInvoice(s.GetContext(), paid.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestVoidSentInvoice() {
	created := s.create(invoiceRequest("client_1", "100"))
	_, err := s.service.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	voided, err := s.service.VoidInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, voided.InvoiceStatus)
	s.NotNil(voided.VoidedAt)
}

func (s *InvoiceServiceSuite) TestUpdateOnlyAllowedForDrafts() {
	created := s.create(invoiceRequest("client_1", "100"))

	updated, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		LineItems: []dto.LineItemRequest{{Description: "Retainer", Quantity: dec("2"), UnitRate: dec("75")}},
	})
	s.Require().NoError(err)
	s.True(dec("150").Equal(updated.Total))

	_, err = s.service.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{Notes: lo.ToPtr("late edit")})
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestDeleteByStatus() {
	draft := s.create(invoiceRequest("client_1", "100"))
	resp, err := s.service.DeleteInvoice(s.GetContext(), draft.ID)
	s.Require().NoError(err)
	s.Equal(dto.DeleteActionDeleted, resp.Action)
	_, err = s.service.GetInvoice(s.GetContext(), draft.ID)
	s.True(ierr.IsNotFound(err))

	open := s.create(invoiceRequest("client_1", "100"))
	_, err = s.service.SendInvoice(s.GetContext(), open.ID)
	s.Require().NoError(err)
	resp, err = s.service.DeleteInvoice(s.GetContext(), open.ID)
	s.Require().NoError(err)
	s.Equal(dto.DeleteActionVoided, resp.Action)

	resp, err = s.service.DeleteInvoice(s.GetContext(), open.ID)
	s.Require().NoError(err)
	s.Equal(dto.DeleteActionArchived, resp.Action)
}

func (s *InvoiceServiceSuite) TestUpdateStatusRejectsPaymentStatuses() {
	created := s.create(invoiceRequest("client_1", "100"))
	_, err := s.service.UpdateStatus(s.GetContext(), created.ID, types.InvoiceStatusPaid)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestProcessOverdueOpensOneEpisode() {
	req := invoiceRequest("client_1", "100")
	issued := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	req.IssuedDate = &issued
	req.DueDate = &due
	created := s.create(req)
	_, err := s.service.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)

	asOf := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	summary, err := s.service.ProcessOverdue(s.GetContext(), asOf)
	s.Require().NoError(err)
	s.Equal(1, summary.Updated)

	summary, err = s.service.ProcessOverdue(s.GetContext(), asOf.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Equal(0, summary.Updated)
	s.Equal(1, summary.Skipped)

	filter := types.NewWorkflowEventLogFilter()
	filter.EventType = types.EventInvoiceOverdue
	logs, err := s.GetStores().EventLogRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(logs, 1)

	got, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.OverdueSince)
	s.True(got.IsOverdue(asOf))
	s.False(got.CanTransition(invoice.TransitionSend))
}
