package service

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceGeneratorServiceSuite struct {
	testutil.BaseServiceTestSuite
	recurringService RecurringInvoiceService
	scheduledService ScheduledInvoiceService
	invoiceService   InvoiceService
	service          InvoiceGeneratorService
}

func TestInvoiceGeneratorService(t *testing.T) {
	suite.Run(t, new(InvoiceGeneratorServiceSuite))
}

func (s *InvoiceGeneratorServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.recurringService = NewRecurringInvoiceService(params)
	s.scheduledService = NewScheduledInvoiceService(params)
	s.invoiceService = NewInvoiceService(params)
	s.service = NewInvoiceGeneratorService(params)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *InvoiceGeneratorServiceSuite) monthlySeries(start time.Time) *dto.RecurringInvoiceResponse {
	resp, err := s.recurringService.CreateRecurringInvoice(s.GetContext(), dto.CreateRecurringInvoiceRequest{
		ProjectID: "project_1",
		ClientID:  "client_1",
		LineItems: []dto.LineItemRequest{{Description: "Monthly retainer", UnitRate: dec("2000")}},
		Frequency: types.RecurringFrequencyMonthly,
		StartDate: start,
		DueDays:   lo.ToPtr(15),
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceGeneratorServiceSuite) seriesInvoices(seriesID string) []*dto.InvoiceResponse {
	filter := types.NewInvoiceFilter()
	filter.RecurringInvoiceID = seriesID
	resp, err := s.invoiceService.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	return resp.Items
}

func (s *InvoiceGeneratorServiceSuite) TestMonthlySeriesClampsAndCatchesUp() {
	series := s.monthlySeries(day(2026, time.January, 31))
	s.Equal(31, series.AnchorDay)

	resp, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 1))
	s.Require().NoError(err)
	s.Equal(2, resp.Recurring.Created)
	s.Require().Len(resp.Results, 2)
	s.Equal("2026-01-31", resp.Results[0].PeriodDate)
	s.Equal("2026-02-28", resp.Results[1].PeriodDate)

	got, err := s.recurringService.GetRecurringInvoice(s.GetContext(), series.ID)
	s.Require().NoError(err)
	s.Equal("2026-03-31", types.FormatDate(got.NextGenerationDate))
	s.Equal(2, got.GeneratedCount)

	invoices := s.seriesInvoices(series.ID)
	s.Require().Len(invoices, 2)
	for _, inv := range invoices {
		s.Equal(types.InvoiceSourceRecurring, inv.Source)
		s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
		s.True(dec("2000").Equal(inv.Total))
		s.Require().NotNil(inv.IssuedDate)
		s.Equal(inv.IssuedDate.AddDate(0, 0, 15).Format(time.DateOnly), types.FormatDate(inv.DueDate))
	}
}

func (s *InvoiceGeneratorServiceSuite) TestGenerationIsIdempotentPerDay() {
	series := s.monthlySeries(day(2026, time.March, 1))

	first, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 1))
	s.Require().NoError(err)
	s.Equal(1, first.Recurring.Created)

	second, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 1))
	s.Require().NoError(err)
	s.Equal(0, second.Recurring.Created)

	s.Len(s.seriesInvoices(series.ID), 1)

	got, err := s.recurringService.GetRecurringInvoice(s.GetContext(), series.ID)
	s.Require().NoError(err)
	s.Equal("2026-04-01", types.FormatDate(got.NextGenerationDate))
}

func (s *InvoiceGeneratorServiceSuite) TestPausedSeriesIsNotGenerated() {
	series := s.monthlySeries(day(2026, time.January, 1))
	_, err := s.recurringService.PauseRecurringInvoice(s.GetContext(), series.ID)
	s.Require().NoError(err)

	resp, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 1))
	s.Require().NoError(err)
	s.Equal(0, resp.Recurring.Created)
	s.Empty(s.seriesInvoices(series.ID))
}

func (s *InvoiceGeneratorServiceSuite) TestResumeSkipsMissedPeriods() {
	series := s.monthlySeries(day(2026, time.January, 1))
	_, err := s.recurringService.PauseRecurringInvoice(s.GetContext(), series.ID)
	s.Require().NoError(err)

	resumed, err := s.recurringService.ResumeRecurringInvoice(s.GetContext(), series.ID)
	s.Require().NoError(err)
	s.True(resumed.IsActive)
	s.False(resumed.NextGenerationDate.Before(types.ToDate(time.Now())))
	s.Equal(1, resumed.NextGenerationDate.Day())
}

func (s *InvoiceGeneratorServiceSuite) TestResumeAfterEndDateIsRejected() {
	end := day(2026, time.February, 15)
	resp, err := s.recurringService.CreateRecurringInvoice(s.GetContext(), dto.CreateRecurringInvoiceRequest{
		ProjectID: "project_1",
		ClientID:  "client_1",
		LineItems: []dto.LineItemRequest{{Description: "Support", UnitRate: dec("100")}},
		Frequency: types.RecurringFrequencyMonthly,
		StartDate: day(2026, time.January, 1),
		EndDate:   &end,
	})
	s.Require().NoError(err)
	_, err = s.recurringService.PauseRecurringInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	_, err = s.recurringService.ResumeRecurringInvoice(s.GetContext(), resp.ID)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceGeneratorServiceSuite) TestScheduledInvoiceGeneratedOnce() {
	sched, err := s.scheduledService.CreateScheduledInvoice(s.GetContext(), dto.CreateScheduledInvoiceRequest{
		ProjectID:     "project_1",
		ClientID:      "client_1",
		Description:   "Launch milestone",
		Amount:        dec("1500"),
		ScheduledDate: day(2026, time.March, 1),
	})
	s.Require().NoError(err)

	early, err := s.service.GenerateDue(s.GetContext(), day(2026, time.February, 28))
	s.Require().NoError(err)
	s.Equal(0, early.Scheduled.Created)

	resp, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 2))
	s.Require().NoError(err)
	s.Equal(1, resp.Scheduled.Created)

	again, err := s.service.GenerateDue(s.GetContext(), day(2026, time.March, 3))
	s.Require().NoError(err)
	s.Equal(0, again.Scheduled.Created)

	got, err := s.scheduledService.GetScheduledInvoice(s.GetContext(), sched.ID)
	s.Require().NoError(err)
	s.Equal(types.ScheduledInvoiceStatusGenerated, got.ScheduledStatus)
	s.Require().NotNil(got.GeneratedInvoiceID)

	_, err = s.scheduledService.CancelScheduledInvoice(s.GetContext(), sched.ID)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))
}
