package service

import (
	"testing"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/testutil"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestReachedOffset(t *testing.T) {
	offsets := []int{-3, 1, 7, 14}
	tests := []struct {
		name        string
		daysFromDue int
		want        int
		found       bool
	}{
		{name: "before first offset", daysFromDue: -5},
		{name: "on first offset", daysFromDue: -3, want: -3, found: true},
		{name: "due date", daysFromDue: 0, want: -3, found: true},
		{name: "day after due", daysFromDue: 1, want: 1, found: true},
		{name: "between offsets", daysFromDue: 10, want: 7, found: true},
		{name: "past last offset", daysFromDue: 30, want: 14, found: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := reachedOffset(offsets, tt.daysFromDue)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

type ReminderServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        ReminderService
	invoiceService InvoiceService
	due            time.Time
}

func TestReminderService(t *testing.T) {
	suite.Run(t, new(ReminderServiceSuite))
}

func (s *ReminderServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewReminderService(params)
	s.invoiceService = NewInvoiceService(params)
	s.due = types.ToDate(time.Now().UTC().AddDate(0, 0, 10))
}

// sentInvoice issues an invoice due on s.due and sends it to the client
func (s *ReminderServiceSuite) sentInvoice(billingEmail *string) *dto.InvoiceResponse {
	issued := s.due.AddDate(0, 0, -30)
	req := invoiceRequest("client_1", "250")
	req.IssuedDate = &issued
	req.DueDate = lo.ToPtr(s.due)
	req.BillingEmail = billingEmail

	created, err := s.invoiceService.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	sent, err := s.invoiceService.SendInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	return sent
}

func (s *ReminderServiceSuite) dispatch(daysFromDue int) *dto.BatchSummary {
	summary, err := s.service.DispatchReminders(s.GetContext(), s.due.AddDate(0, 0, daysFromDue))
	s.Require().NoError(err)
	return summary
}

func (s *ReminderServiceSuite) TestOneReminderPerOffset() {
	inv := s.sentInvoice(lo.ToPtr("ap@client.example"))
	sentEmails := len(s.GetEmailSender().Messages())

	s.Equal(1, s.dispatch(-5).Skipped)

	first := s.dispatch(1)
	s.Equal(1, first.Created)

	again := s.dispatch(1)
	s.Equal(0, again.Created)
	s.Equal(1, again.Skipped)

	// two days later the latest reached offset is still 1
	s.Equal(1, s.dispatch(3).Skipped)

	week := s.dispatch(7)
	s.Equal(1, week.Created)

	messages := s.GetEmailSender().Messages()[sentEmails:]
	s.Require().Len(messages, 2)
	s.Contains(messages[0].Subject, "1 days overdue")
	s.Contains(messages[1].Subject, "7 days overdue")
	for _, msg := range messages {
		s.Equal("ap@client.example", msg.ToAddress)
		s.Contains(msg.Subject, inv.InvoiceNumber)
	}

	reminder, err := s.GetStores().InvoiceRepo.GetReminder(s.GetContext(), inv.ID, reminderKey(7))
	s.Require().NoError(err)
	s.Equal(types.ReminderStatusSent, reminder.ReminderStatus)
	s.Equal(ReminderChannelEmail, reminder.Channel)
	s.Equal(1, reminder.Attempts)
	s.NotNil(reminder.SentAt)
}

func (s *ReminderServiceSuite) TestNotificationWithoutBillingEmail() {
	inv := s.sentInvoice(nil)
	sentEmails := len(s.GetEmailSender().Messages())

	summary := s.dispatch(-3)
	s.Equal(1, summary.Created)
	s.Len(s.GetEmailSender().Messages(), sentEmails)

	filter := types.NewNotificationFilter()
	filter.RecipientID = "client_1"
	notifications, err := s.GetStores().NotificationRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(notifications, 1)
	s.Contains(notifications[0].Title, "is due in 3 days")
	s.Equal(inv.ID, lo.FromPtr(notifications[0].EntityID))

	reminder, err := s.GetStores().InvoiceRepo.GetReminder(s.GetContext(), inv.ID, reminderKey(-3))
	s.Require().NoError(err)
	s.Equal(ReminderChannelNotification, reminder.Channel)
	s.Equal(types.ReminderStatusSent, reminder.ReminderStatus)
}

func (s *ReminderServiceSuite) TestFailedEmailIsRetriedByLaterRun() {
	inv := s.sentInvoice(lo.ToPtr("ap@client.example"))
	sender := s.GetEmailSender()
	sentEmails := len(sender.Messages())

	sender.Err = ierr.NewError("sendgrid unavailable").Mark(ierr.ErrTransient)
	failed := s.dispatch(1)
	s.Equal(1, failed.Failed)
	s.Equal(0, failed.Created)

	reminder, err := s.GetStores().InvoiceRepo.GetReminder(s.GetContext(), inv.ID, reminderKey(1))
	s.Require().NoError(err)
	s.Equal(types.ReminderStatusFailed, reminder.ReminderStatus)
	s.Equal(1, reminder.Attempts)
	s.Require().NotNil(reminder.LastError)
	s.Contains(*reminder.LastError, "sendgrid unavailable")
	s.Nil(reminder.SentAt)

	sender.Err = nil
	retried := s.dispatch(1)
	s.Equal(1, retried.Created)
	s.Len(sender.Messages(), sentEmails+1)

	reminder, err = s.GetStores().InvoiceRepo.GetReminder(s.GetContext(), inv.ID, reminderKey(1))
	s.Require().NoError(err)
	s.Equal(types.ReminderStatusSent, reminder.ReminderStatus)
	s.Equal(2, reminder.Attempts)
	s.NotNil(reminder.SentAt)

	s.Equal(1, s.dispatch(1).Skipped)
}

func (s *ReminderServiceSuite) TestFailedReminderStopsAtMaxAttempts() {
	cfg := s.GetConfig()
	previous := cfg.Reminders.MaxAttempts
	cfg.Reminders.MaxAttempts = 2
	defer func() { cfg.Reminders.MaxAttempts = previous }()

	inv := s.sentInvoice(lo.ToPtr("ap@client.example"))
	sender := s.GetEmailSender()
	sender.Err = ierr.NewError("sendgrid unavailable").Mark(ierr.ErrTransient)

	s.Equal(1, s.dispatch(1).Failed)
	s.Equal(1, s.dispatch(1).Failed)
	s.Equal(1, s.dispatch(1).Skipped)

	sender.Err = nil
	s.Equal(1, s.dispatch(2).Skipped)

	reminder, err := s.GetStores().InvoiceRepo.GetReminder(s.GetContext(), inv.ID, reminderKey(1))
	s.Require().NoError(err)
	s.Equal(types.ReminderStatusFailed, reminder.ReminderStatus)
	s.Equal(2, reminder.Attempts)

	// the next offset starts with a fresh budget
	s.Equal(1, s.dispatch(7).Created)
}
