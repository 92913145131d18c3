package dto

import (
	"time"

	"github.com/freelanceops/billing/internal/types"
)

// StepResult is the outcome of one scheduler step
type StepResult struct {
	Step       types.SchedulerStep `json:"step"`
	Summary    BatchSummary        `json:"summary"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// SchedulerRunResponse reports one scheduler run
type SchedulerRunResponse struct {
	RunID string `json:"run_id"`
	// Skipped is set when another holder owned the run-lock
	Skipped    bool         `json:"skipped"`
	Fast       bool         `json:"fast"`
	AsOf       string       `json:"as_of"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
}

// RunSchedulerRequest runs one tick by hand
type RunSchedulerRequest struct {
	AsOf string `json:"as_of,omitempty"`
	// Fast runs only the reminder and webhook retry steps
	Fast bool `json:"fast,omitempty"`
}

// AsOfDate returns the requested day, or today
func (r RunSchedulerRequest) AsOfDate() (time.Time, error) {
	return parseAsOf(r.AsOf)
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status        string     `json:"status"`
	Database      string     `json:"database"`
	LastRunAt     *time.Time `json:"last_scheduler_run_at,omitempty"`
	LastRunResult *string    `json:"last_scheduler_summary,omitempty"`
}
