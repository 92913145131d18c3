package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/email"
	"github.com/freelanceops/billing/internal/types"
	"github.com/samber/lo"
)

const (
	ReminderChannelEmail        = "email"
	ReminderChannelNotification = "notification"

	// reminderClaimTimeout frees the claim of a run that died while sending
	reminderClaimTimeout = 30 * time.Minute
)

// ReminderService reminds clients of invoices around their due date
type ReminderService interface {
	// DispatchReminders sends, for every open invoice, the reminder of the latest offset
	// reached on asOf unless it was already sent. A failed reminder is tried again by later
	// runs until reminders.max_attempts is used.
	DispatchReminders(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error)
}

type reminderService struct {
	ServiceParams
}

func NewReminderService(params ServiceParams) ReminderService {
	return &reminderService{ServiceParams: params}
}

func (s *reminderService) DispatchReminders(ctx context.Context, asOf time.Time) (*dto.BatchSummary, error) {
	summary := &dto.BatchSummary{}
	if !s.Config.Reminders.Enabled || len(s.Config.Reminders.Offsets) == 0 {
		return summary, nil
	}
	asOf = types.ToDate(asOf)

	offsets := append([]int(nil), s.Config.Reminders.Offsets...)
	sort.Ints(offsets)

	filter := types.NewNoLimitInvoiceFilter()
	filter.InvoiceStatus = types.InvoiceOpenStatuses
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		summary.Processed++
		offset, ok := reachedOffset(offsets, types.DaysBetween(inv.DueDate, asOf))
		if !ok || !inv.GetRemainingAmount().IsPositive() {
			summary.Skipped++
			continue
		}

		channel := lo.Ternary(lo.FromPtr(inv.BillingEmail) != "", ReminderChannelEmail, ReminderChannelNotification)
		key := reminderKey(offset)
		now := time.Now().UTC()
		claimed, err := s.InvoiceRepo.ClaimReminder(types.WithoutTransaction(ctx), &invoice.ReminderClaim{
			InvoiceID:   inv.ID,
			ReminderKey: key,
			Channel:     channel,
			Now:         now,
			StaleBefore: now.Add(-reminderClaimTimeout),
			MaxAttempts: s.Config.Reminders.MaxAttempts,
		})
		if err != nil {
			summary.Fail(inv.ID, err)
			continue
		}
		if !claimed {
			summary.Skipped++
			continue
		}

		sendErr := s.sendReminder(ctx, inv, offset, channel)
		var failure *string
		if sendErr != nil {
			failure = lo.ToPtr(sendErr.Error())
		}
		if err := s.InvoiceRepo.CompleteReminder(types.WithoutTransaction(ctx), inv.ID, key, failure, time.Now().UTC()); err != nil {
			s.Logger.Errorw("failed to record invoice reminder outcome",
				"invoice_id", inv.ID,
				"offset", offset,
				"error", err,
			)
			summary.Fail(inv.ID, err)
			continue
		}
		if sendErr != nil {
			s.Logger.Errorw("failed to send invoice reminder",
				"invoice_id", inv.ID,
				"offset", offset,
				"channel", channel,
				"error", sendErr,
			)
			summary.Fail(inv.ID, sendErr)
			continue
		}
		summary.Created++
	}

	s.Logger.Infow("invoice reminders dispatched", summary.LogFields()...)
	return summary, nil
}

// reachedOffset returns the largest offset not after daysFromDue
func reachedOffset(sortedOffsets []int, daysFromDue int) (int, bool) {
	found := false
	reached := 0
	for _, o := range sortedOffsets {
		if o > daysFromDue {
			break
		}
		reached, found = o, true
	}
	return reached, found
}

func reminderKey(offset int) string {
	return fmt.Sprintf("offset_%d", offset)
}

func reminderText(inv *invoice.Invoice, offset int) (string, string) {
	amount := inv.GetRemainingAmount().StringFixed(types.MoneyPrecision)
	switch {
	case offset < 0:
		return fmt.Sprintf("Invoice %s is due in %d days", inv.InvoiceNumber, -offset),
			fmt.Sprintf("A balance of %s %s on invoice %s is due on %s.", amount, inv.Currency, inv.InvoiceNumber, types.FormatDate(inv.DueDate))
	case offset == 0:
		return fmt.Sprintf("Invoice %s is due today", inv.InvoiceNumber),
			fmt.Sprintf("A balance of %s %s on invoice %s is due today.", amount, inv.Currency, inv.InvoiceNumber)
	default:
		return fmt.Sprintf("Invoice %s is %d days overdue", inv.InvoiceNumber, offset),
			fmt.Sprintf("A balance of %s %s on invoice %s was due on %s.", amount, inv.Currency, inv.InvoiceNumber, types.FormatDate(inv.DueDate))
	}
}

func (s *reminderService) sendReminder(ctx context.Context, inv *invoice.Invoice, offset int, channel string) error {
	subject, body := reminderText(inv, offset)
	if channel == ReminderChannelEmail {
		_, err := s.EmailSender.Send(ctx, email.Message{
			ToAddress: *inv.BillingEmail,
			Subject:   subject,
			Text:      body,
		})
		return err
	}

	n := &notification.Notification{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		RecipientID: inv.ClientID,
		Title:       subject,
		Body:        body,
		EntityType:  lo.ToPtr(string(types.EntityTypeInvoice)),
		EntityID:    lo.ToPtr(inv.ID),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	return s.NotificationRepo.Create(ctx, n)
}
