package service

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/latefee"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type LateFeeServiceSuite struct {
	testutil.BaseServiceTestSuite
	invoiceService InvoiceService
	service        LateFeeService
}

func TestLateFeeService(t *testing.T) {
	suite.Run(t, new(LateFeeServiceSuite))
}

func (s *LateFeeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.invoiceService = NewInvoiceService(params)
	s.service = NewLateFeeService(params)
}

func (s *LateFeeServiceSuite) overdueInvoice(policy invoice.LateFeePolicy) *dto.InvoiceResponse {
	req := invoiceRequest("client_1", "1000")
	issued := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	req.IssuedDate = &issued
	req.DueDate = &due
	req.LateFeePolicy = &policy

	created, err := s.invoiceService.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	sent, err := s.invoiceService.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	return sent
}

func (s *LateFeeServiceSuite) TestPercentageFeeChargedOnce() {
	inv := s.overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyPercentage, Value: dec("0.05")})

	resp, err := s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(resp.Results, 1)
	s.True(resp.Results[0].Applied)
	s.True(dec("50").Equal(resp.Results[0].Charge))
	s.Equal(9, resp.Results[0].DaysOverdue)
	s.Equal(1, resp.Summary.Updated)

	resp, err = s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(resp.Results, 1)
	s.False(resp.Results[0].Applied)
	s.Equal(latefee.ReasonAlreadyApplied, resp.Results[0].Reason)
	s.Equal(1, resp.Summary.Skipped)

	got, err := s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(dec("1050").Equal(got.Total), "total %s", got.Total)
	s.True(dec("50").Equal(got.LateFeeAmount))

	fees := 0
	for _, line := range got.LineItems {
		if line.Kind == types.LineItemKindLateFee {
			fees++
		}
	}
	s.Equal(1, fees)
}

func (s *LateFeeServiceSuite) TestDailyPercentageAccruesOnOneLine() {
	inv := s.overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyDailyPercentage, Value: dec("0.001")})

	_, err := s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	_, err = s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)

	got, err := s.invoiceService.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(dec("10").Equal(got.LateFeeAmount), "late fee %s", got.LateFeeAmount)

	fees := 0
	for _, line := range got.LineItems {
		if line.Kind == types.LineItemKindLateFee {
			fees++
		}
	}
	s.Equal(1, fees)
}

func (s *LateFeeServiceSuite) TestNoPolicyIsSkipped() {
	s.overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyNone})

	resp, err := s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(resp.Results, 1)
	s.False(resp.Results[0].Applied)
	s.Equal(latefee.ReasonNoPolicy, resp.Results[0].Reason)
}

func (s *LateFeeServiceSuite) TestNotYetDueIsIgnored() {
	s.overdueInvoice(invoice.LateFeePolicy{Type: types.LateFeePolicyFlat, Value: dec("25")})

	resp, err := s.service.ProcessLateFees(s.GetContext(), time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Empty(resp.Results)
}
