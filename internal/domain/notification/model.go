package notification

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// Notification is an in-app message shown in the admin dashboard or client portal
type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	EntityType  *string    `json:"entity_type,omitempty"`
	EntityID    *string    `json:"entity_id,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	types.BaseModel
}

func (n *Notification) Validate() error {
	if n.RecipientID == "" {
		return ierr.NewError("notification recipient is required").
			WithHint("Please provide a recipient").
			Mark(ierr.ErrValidation)
	}
	if n.Title == "" {
		return ierr.NewError("notification title is required").
			WithHint("Please provide a title").
			Mark(ierr.ErrValidation)
	}
	return nil
}
