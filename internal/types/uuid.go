package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_01HZX3K4V6Q6W4T2Y8R9N0M1B2
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities
	UUID_PREFIX_INVOICE            = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM  = "inv_line"
	UUID_PREFIX_PAYMENT            = "pay"
	UUID_PREFIX_CREDIT             = "cred"
	UUID_PREFIX_RECURRING_INVOICE  = "rec"
	UUID_PREFIX_SCHEDULED_INVOICE  = "sched"
	UUID_PREFIX_WORKFLOW_TRIGGER   = "trg"
	UUID_PREFIX_WORKFLOW_EVENT     = "wevt"
	UUID_PREFIX_WORKFLOW_EXECUTION = "wexec"
	UUID_PREFIX_WEBHOOK_DELIVERY   = "whd"
	UUID_PREFIX_TASK               = "task"
	UUID_PREFIX_NOTIFICATION       = "ntf"
	UUID_PREFIX_INVOICE_REMINDER   = "rmd"
	UUID_PREFIX_SCHEDULER_RUN      = "run"
)

const (
	INVOICE_NUMBER_PREFIX = "INV"
)
