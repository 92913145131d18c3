package invoice

import (
	"fmt"
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// InvoiceSequence is the per-month counter invoice numbers are allocated from
type InvoiceSequence struct {
	YearMonth string
	LastValue int64
	UpdatedAt time.Time
}

// SequenceYearMonth returns the sequence bucket for an invoice created at t
func SequenceYearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

// FormatInvoiceNumber renders INV-YYYYMM-00001 style numbers
func FormatInvoiceNumber(yearMonth string, value int64) string {
	return fmt.Sprintf("%s-%s-%05d", types.INVOICE_NUMBER_PREFIX, yearMonth, value)
}
