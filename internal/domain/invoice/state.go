package invoice

import (
	"context"
	"fmt"
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
	"github.com/qmuntal/stateless"
	"github.com/shopspring/decimal"
)

// Transition is a trigger of the invoice state machine
type Transition string

const (
	TransitionSend       Transition = "send"
	TransitionView       Transition = "view"
	TransitionPayPartial Transition = "pay_partial"
	TransitionPayFull    Transition = "pay_full"
	TransitionVoid       Transition = "void"
	TransitionCancel     Transition = "cancel"
)

// hasBillableLine guards sending: the invoice passed to Fire needs a line with a positive amount
func hasBillableLine(_ context.Context, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	inv, ok := args[0].(*Invoice)
	return ok && inv.HasBillableLine()
}

func newStateMachine(from types.InvoiceStatus) *stateless.StateMachine {
	machine := stateless.NewStateMachine(from)

	machine.Configure(types.InvoiceStatusDraft).
		Permit(TransitionSend, types.InvoiceStatusSent, hasBillableLine).
		Permit(TransitionCancel, types.InvoiceStatusCancelled)

	machine.Configure(types.InvoiceStatusSent).
		Permit(TransitionView, types.InvoiceStatusViewed).
		Permit(TransitionPayPartial, types.InvoiceStatusPartial).
		Permit(TransitionPayFull, types.InvoiceStatusPaid).
		Permit(TransitionVoid, types.InvoiceStatusVoid)

	machine.Configure(types.InvoiceStatusViewed).
		Permit(TransitionPayPartial, types.InvoiceStatusPartial).
		Permit(TransitionPayFull, types.InvoiceStatusPaid).
		Permit(TransitionVoid, types.InvoiceStatusVoid)

	machine.Configure(types.InvoiceStatusPartial).
		PermitReentry(TransitionPayPartial).
		Permit(TransitionPayFull, types.InvoiceStatusPaid).
		Permit(TransitionVoid, types.InvoiceStatusVoid)

	// paid, void and cancelled are terminal
	machine.Configure(types.InvoiceStatusPaid)
	machine.Configure(types.InvoiceStatusVoid)
	machine.Configure(types.InvoiceStatusCancelled)

	return machine
}

// CanTransition reports whether t is legal for the invoice in its current status
func (i *Invoice) CanTransition(t Transition) bool {
	ok, err := newStateMachine(i.InvoiceStatus).CanFire(t, i)
	return err == nil && ok
}

// TransitionTo moves the invoice along t and stamps the matching timestamp.
// Illegal transitions fail with ErrConflict and leave the invoice untouched.
func (i *Invoice) TransitionTo(t Transition, now time.Time) error {
	from := i.InvoiceStatus
	machine := newStateMachine(from)
	if err := machine.Fire(t, i); err != nil {
		hint := fmt.Sprintf("Invoice in status %s can not be moved by %s", from, t)
		if t == TransitionSend && from == types.InvoiceStatusDraft {
			hint = "Invoice needs at least one line item with a positive amount before it is sent"
		}
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     from,
				"transition": t,
			}).
			Mark(ierr.ErrConflict)
	}
	next := machine.MustState().(types.InvoiceStatus)

	now = now.UTC()
	switch next {
	case types.InvoiceStatusSent:
		i.SentAt = &now
		if i.IssuedDate == nil {
			issued := types.ToDate(now)
			i.IssuedDate = &issued
		}
	case types.InvoiceStatusViewed:
		i.ViewedAt = &now
	case types.InvoiceStatusPaid:
		i.PaidAt = &now
		i.OverdueSince = nil
	case types.InvoiceStatusVoid:
		i.VoidedAt = &now
		i.OverdueSince = nil
	}
	i.InvoiceStatus = next
	return nil
}

// PaymentTransition is the transition a payment history summing to amountPaid triggers
func (i *Invoice) PaymentTransition(amountPaid decimal.Decimal) Transition {
	if amountPaid.GreaterThanOrEqual(i.Total) {
		return TransitionPayFull
	}
	return TransitionPayPartial
}
