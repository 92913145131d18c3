package invoice

import (
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// Reminder is the send record of one reminder offset of an invoice
type Reminder struct {
	ID             string               `json:"id"`
	InvoiceID      string               `json:"invoice_id"`
	ReminderKey    string               `json:"reminder_key"`
	Channel        string               `json:"channel"`
	ReminderStatus types.ReminderStatus `json:"reminder_status"`
	Attempts       int                  `json:"attempts"`
	LastError      *string              `json:"last_error,omitempty"`
	ClaimedAt      time.Time            `json:"claimed_at"`
	SentAt         *time.Time           `json:"sent_at,omitempty"`
}

// ReminderClaim asks to send the reminder of one offset of an invoice at Now
type ReminderClaim struct {
	InvoiceID   string
	ReminderKey string
	Channel     string
	Now         time.Time
	// StaleBefore lets a pending claim older than it be taken over after a crash
	StaleBefore time.Time
	MaxAttempts int
}
