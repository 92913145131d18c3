package service

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/workflow"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/webhook"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
)

const (
	testHookURL    = "https://hooks.example.com/billing"
	testHookSecret = "whsec_test_secret"
)

type WorkflowEngineSuite struct {
	testutil.BaseServiceTestSuite
	triggerService  TriggerService
	eventService    EventService
	invoiceService  InvoiceService
	paymentService  PaymentService
	deliveryService WebhookDeliveryService
	taskService     TaskService
}

func TestWorkflowEngine(t *testing.T) {
	suite.Run(t, new(WorkflowEngineSuite))
}

func (s *WorkflowEngineSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	engine := newSubscribedEngine(params)
	s.triggerService = NewTriggerService(params)
	s.eventService = NewEventService(params, engine)
	s.invoiceService = NewInvoiceService(params)
	s.paymentService = NewPaymentService(params)
	s.deliveryService = NewWebhookDeliveryService(params)
	s.taskService = NewTaskService(params)
}

func (s *WorkflowEngineSuite) createTrigger(req dto.CreateTriggerRequest) *dto.TriggerResponse {
	resp, err := s.triggerService.CreateTrigger(s.GetContext(), req)
	s.Require().NoError(err)
	return resp
}

func (s *WorkflowEngineSuite) emitMilestone(milestoneID string, billable bool) *dto.EventLogResponse {
	payload, err := json.Marshal(map[string]any{
		"milestone_id":            milestoneID,
		"project_id":              "project_1",
		"client_id":               "client_1",
		"title":                   "Design phase",
		"amount":                  "1200.00",
		"has_payment_deliverable": billable,
	})
	s.Require().NoError(err)

	resp, err := s.eventService.EmitEvent(s.GetContext(), &dto.EmitEventRequest{
		EventType: types.EventMilestoneCompleted,
		Payload:   payload,
	})
	s.Require().NoError(err)
	return resp
}

func milestoneInvoiceTrigger() dto.CreateTriggerRequest {
	return dto.CreateTriggerRequest{
		Name:      "Bill completed milestones",
		EventType: types.EventMilestoneCompleted,
		Conditions: []workflow.Condition{
			{Field: "has_payment_deliverable", Operator: types.ConditionOperatorEquals, Value: true},
		},
		Actions: []workflow.Action{{
			Type: types.ActionCreateInvoice,
			CreateInvoice: &workflow.CreateInvoiceConfig{
				AmountField: "amount",
				Description: "Milestone: {{.title}}",
				DueDays:     14,
			},
		}},
	}
}

func (s *WorkflowEngineSuite) TestMilestoneInvoiceIsCreatedOnce() {
	s.createTrigger(milestoneInvoiceTrigger())

	first := s.emitMilestone("milestone_1", true)
	s.Equal(1, first.TriggersMatched)
	s.Require().Len(first.Results, 1)
	s.Equal(types.ActionOutcomeSucceeded, first.Results[0].Outcome)
	invoiceID := first.Results[0].EntityID
	s.NotEmpty(invoiceID)

	second := s.emitMilestone("milestone_1", true)
	s.Require().Len(second.Results, 1)
	s.Equal(types.ActionOutcomeDuplicate, second.Results[0].Outcome)

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), invoiceID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceSourceWorkflow, inv.Source)
	s.Equal("client_1", inv.ClientID)
	s.True(dec("1200").Equal(inv.Total))
	s.Require().Len(inv.LineItems, 1)
	s.Equal("Milestone: Design phase", inv.LineItems[0].Description)

	filter := types.NewInvoiceFilter()
	filter.ClientID = "client_1"
	list, err := s.invoiceService.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(list.Items, 1)

	other := s.emitMilestone("milestone_2", true)
	s.Require().Len(other.Results, 1)
	s.Equal(types.ActionOutcomeSucceeded, other.Results[0].Outcome)
}

func (s *WorkflowEngineSuite) TestConditionsGateTriggers() {
	s.createTrigger(milestoneInvoiceTrigger())

	log := s.emitMilestone("milestone_1", false)
	s.Equal(0, log.TriggersMatched)
	s.Empty(log.Results)
}

func (s *WorkflowEngineSuite) TestInactiveTriggersAreIgnored() {
	trigger := s.createTrigger(milestoneInvoiceTrigger())
	toggled, err := s.triggerService.ToggleTrigger(s.GetContext(), trigger.ID)
	s.Require().NoError(err)
	s.False(toggled.IsActive)

	log := s.emitMilestone("milestone_1", true)
	s.Equal(0, log.TriggersMatched)
}

func (s *WorkflowEngineSuite) TestTriggerValidation() {
	req := milestoneInvoiceTrigger()
	req.Conditions = []workflow.Condition{{Field: "no_such_field", Operator: types.ConditionOperatorNotEmpty}}
	_, err := s.triggerService.CreateTrigger(s.GetContext(), req)
	s.Require().Error(err)

	req = milestoneInvoiceTrigger()
	req.Actions = []workflow.Action{{
		Type:    types.ActionWebhook,
		Webhook: &workflow.WebhookConfig{URL: "ftp://example.com", Secret: testHookSecret},
	}}
	_, err = s.triggerService.CreateTrigger(s.GetContext(), req)
	s.Require().Error(err)
}

func (s *WorkflowEngineSuite) TestTriggersRunInPriorityOrder() {
	s.createTrigger(dto.CreateTriggerRequest{
		Name:      "Follow up",
		EventType: types.EventMilestoneCompleted,
		Priority:  1,
		Actions: []workflow.Action{{
			Type:       types.ActionCreateTask,
			CreateTask: &workflow.CreateTaskConfig{Title: "Follow up on {{.title}}"},
		}},
	})
	s.createTrigger(dto.CreateTriggerRequest{
		Name:      "Notify client",
		EventType: types.EventMilestoneCompleted,
		Priority:  10,
		Actions: []workflow.Action{{
			Type:   types.ActionNotify,
			Notify: &workflow.NotifyConfig{RecipientField: "client_id", Title: "Milestone done"},
		}},
	})

	log := s.emitMilestone("milestone_1", false)
	s.Equal(2, log.TriggersMatched)
	s.Require().Len(log.Results, 2)
	s.Equal("Notify client", log.Results[0].TriggerName)
	s.Equal(types.ActionOutcomeSucceeded, log.Results[0].Outcome)
	s.Equal("Follow up", log.Results[1].TriggerName)
	s.Equal(types.ActionOutcomeSucceeded, log.Results[1].Outcome)

	task, err := s.taskService.GetTask(s.GetContext(), log.Results[1].EntityID)
	s.Require().NoError(err)
	s.Equal("Follow up on Design phase", task.Title)
	s.Equal(types.TaskStatusTodo, task.TaskStatus)
}

func (s *WorkflowEngineSuite) TestInvoicePaidEmitsToTriggers() {
	s.createTrigger(dto.CreateTriggerRequest{
		Name:      "Thank the client",
		EventType: types.EventInvoicePaid,
		Actions: []workflow.Action{{
			Type: types.ActionSendEmail,
			SendEmail: &workflow.SendEmailConfig{
				RecipientField: "billing_email",
				Subject:        "Thanks for paying {{.invoice_number}}",
				Body:           "We received {{.amount_paid}}.",
			},
		}},
	})

	req := invoiceRequest("client_1", "300")
	req.BillingEmail = lo.ToPtr("ap@client.example")
	created, err := s.invoiceService.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	_, err = s.invoiceService.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	_, err = s.paymentService.RecordPayment(s.GetContext(), created.ID, dto.RecordPaymentRequest{
		Amount: dec("300"),
		Method: types.PaymentMethodCard,
	})
	s.Require().NoError(err)

	var thanks int
	for _, msg := range s.GetEmailSender().Messages() {
		if msg.Subject == "Thanks for paying "+created.InvoiceNumber {
			thanks++
		}
	}
	s.Equal(1, thanks)
}

func (s *WorkflowEngineSuite) webhookTrigger() {
	s.createTrigger(dto.CreateTriggerRequest{
		Name:      "Notify accounting",
		EventType: types.EventMilestoneCompleted,
		Actions: []workflow.Action{{
			Type: types.ActionWebhook,
			Webhook: &workflow.WebhookConfig{
				URL:     testHookURL,
				Secret:  testHookSecret,
				Headers: map[string]string{"X-Tenant": "acme"},
			},
		}},
	})
}

func (s *WorkflowEngineSuite) TestWebhookDeliveryIsSigned() {
	s.webhookTrigger()
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusOK})

	log := s.emitMilestone("milestone_1", true)
	s.Require().Len(log.Results, 1)
	s.Equal(types.ActionOutcomeSucceeded, log.Results[0].Outcome)
	deliveryID := log.Results[0].EntityID

	pending, err := s.deliveryService.GetDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.Equal(types.WebhookDeliveryStatusPending, pending.DeliveryStatus)
	s.NotEqual(testHookSecret, pending.Secret)

	s.Require().NoError(s.deliveryService.AttemptDelivery(s.GetContext(), deliveryID))

	requests := s.GetHTTPClient().Requests()
	s.Require().Len(requests, 1)
	req := requests[0]
	s.Equal(http.MethodPost, req.Method)
	s.Equal("acme", req.Headers["X-Tenant"])
	s.Equal(deliveryID, req.Headers[types.WebhookHeaderDelivery])
	s.Equal(string(types.EventMilestoneCompleted), req.Headers[types.WebhookHeaderEvent])
	s.Equal(webhook.Sign(testHookSecret, req.Body), req.Headers[types.WebhookHeaderSignature])
	s.True(webhook.VerifySignature(testHookSecret, req.Body, req.Headers[types.WebhookHeaderSignature]))

	var body map[string]any
	s.Require().NoError(json.Unmarshal(req.Body, &body))
	s.Equal("milestone_1", body["source_entity_id"])

	delivered, err := s.deliveryService.GetDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.Equal(types.WebhookDeliveryStatusDelivered, delivered.DeliveryStatus)
	s.Equal(1, delivered.Attempts)
	s.NotNil(delivered.DeliveredAt)
}

func (s *WorkflowEngineSuite) TestFailedWebhookIsRetried() {
	s.webhookTrigger()
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusBadGateway})

	log := s.emitMilestone("milestone_1", true)
	deliveryID := log.Results[0].EntityID
	s.Require().NoError(s.deliveryService.AttemptDelivery(s.GetContext(), deliveryID))

	failed, err := s.deliveryService.GetDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.Equal(types.WebhookDeliveryStatusFailed, failed.DeliveryStatus)
	s.Equal(1, failed.Attempts)
	s.Require().NotNil(failed.LastStatusCode)
	s.Equal(http.StatusBadGateway, *failed.LastStatusCode)
	s.Require().NotNil(failed.NextAttemptAt)

	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusNoContent})
	retried, err := s.deliveryService.RetryDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.Equal(types.WebhookDeliveryStatusDelivered, retried.DeliveryStatus)
	s.Equal(2, retried.Attempts)

	_, err = s.deliveryService.RetryDelivery(s.GetContext(), deliveryID)
	s.Require().Error(err)
}

func (s *WorkflowEngineSuite) TestRetryDueSkipsDeliveriesNotYetDue() {
	s.webhookTrigger()
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusServiceUnavailable})

	log := s.emitMilestone("milestone_1", true)
	deliveryID := log.Results[0].EntityID
	s.Require().NoError(s.deliveryService.AttemptDelivery(s.GetContext(), deliveryID))

	summary, err := s.deliveryService.RetryDue(s.GetContext(), s.GetNow())
	s.Require().NoError(err)
	s.Equal(0, summary.Processed)

	failed, err := s.deliveryService.GetDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusOK})
	summary, err = s.deliveryService.RetryDue(s.GetContext(), failed.NextAttemptAt.Add(1))
	s.Require().NoError(err)
	s.Equal(1, summary.Processed)
	s.Equal(1, summary.Updated)
}

func (s *WorkflowEngineSuite) TestConcurrentSendersDeliverOnce() {
	s.webhookTrigger()
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Delay:      200 * time.Millisecond,
	})

	log := s.emitMilestone("milestone_1", true)
	deliveryID := log.Results[0].EntityID

	var wg conc.WaitGroup
	wg.Go(func() {
		s.NoError(s.deliveryService.AttemptDelivery(s.GetContext(), deliveryID))
	})
	wg.Go(func() {
		_, err := s.deliveryService.RetryDue(s.GetContext(), time.Now().UTC())
		s.NoError(err)
	})
	wg.Wait()

	s.Len(s.GetHTTPClient().Requests(), 1)
	delivered, err := s.deliveryService.GetDelivery(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	s.Equal(types.WebhookDeliveryStatusDelivered, delivered.DeliveryStatus)
	s.Equal(1, delivered.Attempts)
}

func (s *WorkflowEngineSuite) TestAbandonedClaimIsTakenOver() {
	s.webhookTrigger()
	s.GetHTTPClient().RegisterResponse(testHookURL, testutil.MockResponse{StatusCode: http.StatusOK})

	log := s.emitMilestone("milestone_1", true)
	deliveryID := log.Results[0].EntityID

	repo := s.GetStores().WebhookDeliveryRepo
	d, err := repo.Get(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	claimedAt := time.Now().UTC()
	claimed, err := repo.Claim(s.GetContext(), d, claimedAt, time.Minute)
	s.Require().NoError(err)
	s.Require().True(claimed)

	_, err = s.deliveryService.RetryDelivery(s.GetContext(), deliveryID)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	summary, err := s.deliveryService.RetryDue(s.GetContext(), claimedAt)
	s.Require().NoError(err)
	s.Equal(0, summary.Processed)
	s.Empty(s.GetHTTPClient().Requests())

	summary, err = s.deliveryService.RetryDue(s.GetContext(), claimedAt.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, summary.Updated)
	s.Len(s.GetHTTPClient().Requests(), 1)
}

func (s *WorkflowEngineSuite) TestStaleDeliveryUpdateIsRejected() {
	s.webhookTrigger()
	log := s.emitMilestone("milestone_1", true)
	deliveryID := log.Results[0].EntityID

	repo := s.GetStores().WebhookDeliveryRepo
	first, err := repo.Get(s.GetContext(), deliveryID)
	s.Require().NoError(err)
	stale, err := repo.Get(s.GetContext(), deliveryID)
	s.Require().NoError(err)

	first.MarkDelivered(http.StatusOK, time.Now().UTC())
	s.Require().NoError(repo.Update(s.GetContext(), first))

	stale.MarkFailed(nil, "timeout", time.Now().UTC(), time.Minute)
	err = repo.Update(s.GetContext(), stale)
	s.Require().Error(err)
	s.True(ierr.IsConflict(err))

	claimed, err := repo.Claim(s.GetContext(), stale, time.Now().UTC(), time.Minute)
	s.Require().NoError(err)
	s.False(claimed)
}
