package service

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type CleanupServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CleanupService
	now     time.Time
}

func TestCleanupService(t *testing.T) {
	suite.Run(t, new(CleanupServiceSuite))
}

func (s *CleanupServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCleanupService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.now = time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
}

func (s *CleanupServiceSuite) countRows(table string) int {
	var n int
	s.Require().NoError(s.GetDB().NamedGetContext(s.GetContext(), &n, `SELECT COUNT(*) FROM `+table, map[string]interface{}{}))
	return n
}

func (s *CleanupServiceSuite) createTask(status types.Status, updatedAt time.Time) *task.Task {
	t := &task.Task{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TASK),
		Title:      "Follow up",
		Priority:   types.TaskPriorityMedium,
		TaskStatus: types.TaskStatusTodo,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	t.Status = status
	t.CreatedAt = updatedAt
	t.UpdatedAt = updatedAt
	s.Require().NoError(s.GetStores().TaskRepo.Create(s.GetContext(), t))
	return t
}

func (s *CleanupServiceSuite) createNotification(status types.Status, updatedAt time.Time, readAt *time.Time) *notification.Notification {
	n := &notification.Notification{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		RecipientID: "client_1",
		Title:       "Invoice overdue",
		Body:        "Invoice INV-000001 is overdue",
		ReadAt:      readAt,
		BaseModel:   types.GetDefaultBaseModel(s.GetContext()),
	}
	n.Status = status
	n.CreatedAt = updatedAt
	n.UpdatedAt = updatedAt
	s.Require().NoError(s.GetStores().NotificationRepo.Create(s.GetContext(), n))
	return n
}

func (s *CleanupServiceSuite) createDelivery(status types.WebhookDeliveryStatus, updatedAt time.Time) *webhookdelivery.Delivery {
	d := &webhookdelivery.Delivery{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_DELIVERY),
		TriggerID:      "trg_1",
		EventType:      types.EventContractSigned,
		SourceEntityID: "contract_1",
		URL:            "https://hooks.example.com/billing",
		Payload:        `{"event":"contract.signed"}`,
		DeliveryStatus: status,
		MaxAttempts:    3,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
	}
	s.Require().NoError(s.GetStores().WebhookDeliveryRepo.Create(s.GetContext(), d))
	return d
}

func (s *CleanupServiceSuite) createEventLog(createdAt time.Time) {
	s.Require().NoError(s.GetStores().EventLogRepo.Create(s.GetContext(), &workflow.EventLog{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WORKFLOW_EVENT),
		EventType:      types.EventContractSigned,
		SourceEntityID: "contract_1",
		Payload:        `{}`,
		OccurredAt:     createdAt,
		CreatedAt:      createdAt,
	}))
}

func (s *CleanupServiceSuite) TestPurgeSoftDeletedRespectsRetention() {
	old := s.now.AddDate(0, 0, -31)
	recent := s.now.AddDate(0, 0, -5)

	s.createTask(types.StatusDeleted, old)
	s.createTask(types.StatusDeleted, recent)
	kept := s.createTask(types.StatusPublished, old)

	s.createNotification(types.StatusDeleted, old, nil)
	s.createNotification(types.StatusPublished, old, &old)
	s.createNotification(types.StatusPublished, recent, &recent)
	unread := s.createNotification(types.StatusPublished, old, nil)

	summary, err := s.service.PurgeSoftDeleted(s.GetContext(), s.now)
	s.Require().NoError(err)
	s.Equal(3, summary.Processed)
	s.Equal(0, summary.Failed)
	s.Equal(3, summary.Updated)

	s.Equal(2, s.countRows("tasks"))
	s.Equal(2, s.countRows("notifications"))
	_, err = s.GetStores().TaskRepo.Get(s.GetContext(), kept.ID)
	s.NoError(err)
	_, err = s.GetStores().NotificationRepo.Get(s.GetContext(), unread.ID)
	s.NoError(err)

	again, err := s.service.PurgeSoftDeleted(s.GetContext(), s.now)
	s.Require().NoError(err)
	s.Equal(0, again.Updated)
}

func (s *CleanupServiceSuite) TestPruneAnalyticsKeepsPendingDeliveries() {
	old := s.now.AddDate(0, 0, -91)
	recent := s.now.AddDate(0, 0, -10)

	s.createEventLog(old)
	s.createEventLog(recent)

	s.createDelivery(types.WebhookDeliveryStatusDelivered, old)
	s.createDelivery(types.WebhookDeliveryStatusExhausted, old)
	s.createDelivery(types.WebhookDeliveryStatusDelivered, recent)
	pending := s.createDelivery(types.WebhookDeliveryStatusPending, old)
	failed := s.createDelivery(types.WebhookDeliveryStatusFailed, old)

	summary, err := s.service.PruneAnalytics(s.GetContext(), s.now)
	s.Require().NoError(err)
	s.Equal(2, summary.Processed)
	s.Equal(0, summary.Failed)
	s.Equal(3, summary.Updated)

	s.Equal(1, s.countRows("workflow_event_log"))
	s.Equal(3, s.countRows("webhook_delivery_log"))
	for _, id := range []string{pending.ID, failed.ID} {
		_, err := s.GetStores().WebhookDeliveryRepo.Get(s.GetContext(), id)
		s.NoError(err)
	}
}
