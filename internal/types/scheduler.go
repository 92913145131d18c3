package types

// SchedulerStep names one step of a scheduler run
type SchedulerStep string

const (
	SchedulerStepOverdue      SchedulerStep = "overdue"
	SchedulerStepLateFees     SchedulerStep = "late_fees"
	SchedulerStepGeneration   SchedulerStep = "generation"
	SchedulerStepReminders    SchedulerStep = "reminders"
	SchedulerStepWebhookRetry SchedulerStep = "webhook_retry"
	SchedulerStepCleanup      SchedulerStep = "cleanup"
	SchedulerStepRetention    SchedulerStep = "retention"
)

// SchedulerSteps is the order of a full run
var SchedulerSteps = []SchedulerStep{
	SchedulerStepOverdue,
	SchedulerStepLateFees,
	SchedulerStepGeneration,
	SchedulerStepReminders,
	SchedulerStepWebhookRetry,
	SchedulerStepCleanup,
	SchedulerStepRetention,
}

// SchedulerFastSteps run on the higher frequency tick
var SchedulerFastSteps = []SchedulerStep{
	SchedulerStepReminders,
	SchedulerStepWebhookRetry,
}

func (s SchedulerStep) String() string {
	return string(s)
}
