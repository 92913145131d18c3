package service

import (
	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetSentry(),
		s.GetCache(),
		s.GetEncryption(),
		stores.InvoiceRepo,
		stores.PaymentRepo,
		stores.CreditRepo,
		stores.RecurringRepo,
		stores.ScheduledInvoiceRepo,
		stores.TriggerRepo,
		stores.ExecutionRepo,
		stores.EventLogRepo,
		stores.WebhookDeliveryRepo,
		stores.TaskRepo,
		stores.NotificationRepo,
		stores.SchedulerLockRepo,
		s.GetPublisher(),
		nil,
		s.GetEmailSender(),
		s.GetHTTPClient(),
	)
}

// newSubscribedEngine builds the workflow engine and feeds it every committed event
func newSubscribedEngine(params ServiceParams) WorkflowEngine {
	engine := NewWorkflowEngine(params)
	params.EventPublisher.Subscribe(engine)
	return engine
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoiceRequest(clientID, amount string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		ClientID: clientID,
		LineItems: []dto.LineItemRequest{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(1),
			UnitRate:    dec(amount),
		}},
	}
}

func eventTypes(logs []*workflow.EventLog) []types.WorkflowEventType {
	return lo.Map(logs, func(l *workflow.EventLog, _ int) types.WorkflowEventType { return l.EventType })
}
