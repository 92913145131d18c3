package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopeRecurringInvoice keys one generated invoice per series and period date
	ScopeRecurringInvoice Scope = "recurring_invoice"
	// ScopeScheduledInvoice keys the single invoice of a scheduled invoice
	ScopeScheduledInvoice Scope = "scheduled_invoice"
	// ScopeWorkflowAction keys a financial workflow action per trigger, event and source entity
	ScopeWorkflowAction Scope = "workflow_action"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	// Sort params for consistent hashing
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:16]))
}

// RecurringInvoiceKey keys the invoice a series generates for the period starting on period
func (g *Generator) RecurringInvoiceKey(seriesID string, period time.Time) string {
	return fmt.Sprintf("recurring:%s:%s", seriesID, period.Format("2006-01-02"))
}

// ScheduledInvoiceKey keys the single invoice of a scheduled invoice
func (g *Generator) ScheduledInvoiceKey(scheduledID string) string {
	return "scheduled:" + scheduledID
}
