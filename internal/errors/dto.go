package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	safeDetailsPrefix = "__json__:"
	fallbackMessage   = "An unexpected error occurred"
)

// ErrorResponse is the body of every failed /v1 call
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the sentinel code, the first hint as the message and any reportable details
type ErrorDetail struct {
	Code          string         `json:"code"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse renders err for API callers. Internal text is only included when
// includeInternal is set.
func NewErrorResponse(err error, includeInternal bool) ErrorResponse {
	detail := ErrorDetail{
		Code:    CodeFromErr(err),
		Display: displayMessage(err),
		Details: reportableDetails(err),
	}
	if includeInternal {
		detail.InternalError = err.Error()
	}
	return ErrorResponse{Error: detail}
}

// displayMessage picks the first non-empty hint. GetAllHints walks the chain post-order,
// so the innermost hint wins.
func displayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return fallbackMessage
}

func reportableDetails(err error) map[string]any {
	details := make(map[string]any)
	for _, sd := range errors.GetAllSafeDetails(err) {
		for _, payload := range sd.SafeDetails {
			encoded, ok := strings.CutPrefix(payload, safeDetailsPrefix)
			if !ok {
				continue
			}
			var parsed map[string]any
			if json.Unmarshal([]byte(encoded), &parsed) != nil {
				continue
			}
			for k, v := range parsed {
				details[k] = v
			}
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
