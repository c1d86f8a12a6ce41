package runs

import "strings"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusDiscarded  Status = "discarded"
)

// Normalized callback statuses written to the quote's legacy status field.
const (
	CallbackComplete = "analysis_complete"
	CallbackFailed   = "analysis_failed"
)

// NormalizeCallbackStatus maps the worker's status vocabulary onto the legacy
// quote status. A missing status is treated as completion.
func NormalizeCallbackStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "complete", "completed":
		return CallbackComplete
	case "failed", "error":
		return CallbackFailed
	default:
		return s
	}
}

// RunStatusFromCallback maps a normalized callback status onto the run
// lifecycle. Unknown values report false and must not be applied.
func RunStatusFromCallback(normalized string) (Status, bool) {
	switch normalized {
	case CallbackComplete:
		return StatusCompleted, true
	case CallbackFailed:
		return StatusError, true
	case string(StatusReady):
		return StatusReady, true
	case string(StatusProcessing):
		return StatusProcessing, true
	case string(StatusRequested), "pending":
		return StatusRequested, true
	default:
		return "", false
	}
}

// ClientStatus returns the status vocabulary exposed to pollers.
func ClientStatus(s Status) string {
	if s == StatusRequested {
		return "pending"
	}
	return string(s)
}

// IsTerminal reports whether a run will not change without staff action.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusReady, StatusCompleted, StatusError, StatusDiscarded:
		return true
	}
	return false
}

// Usable reports whether a run in this status can be applied to billing.
func (s Status) Usable() bool {
	return s == StatusReady || s == StatusCompleted
}
