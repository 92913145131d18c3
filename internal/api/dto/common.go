package dto

import (
	"time"

	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/types"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// BatchSummary reports what one batch operation or scheduler step did
type BatchSummary struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Fail counts a failed item and keeps its message
func (s *BatchSummary) Fail(id string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, id+": "+err.Error())
}

// Add folds other into s
func (s *BatchSummary) Add(other BatchSummary) {
	s.Processed += other.Processed
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Errors = append(s.Errors, other.Errors...)
}

// LogFields renders the summary as logger key/value pairs
func (s *BatchSummary) LogFields() []interface{} {
	return []interface{}{
		"processed", s.Processed,
		"created", s.Created,
		"updated", s.Updated,
		"skipped", s.Skipped,
		"failed", s.Failed,
	}
}

// parseAsOf reads an optional YYYY-MM-DD date, defaulting to today
func parseAsOf(asOf string) (time.Time, error) {
	if asOf == "" {
		return types.ToDate(time.Now()), nil
	}
	d, err := types.ParseDate(asOf)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("as_of must be a date formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	return d, nil
}

// AsOfRequest is the optional query of batch endpoints that run for a given day
type AsOfRequest struct {
	AsOf string `json:"as_of,omitempty" form:"as_of"`
}

// Date returns the requested day, or today
func (r AsOfRequest) Date() (time.Time, error) {
	return parseAsOf(r.AsOf)
}
