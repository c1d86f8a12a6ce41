package runs

import "time"

const (
	RunTypeAuto   = "auto"
	RunTypeManual = "manual"
)

// Run is one versioned analysis attempt for a quote.
type Run struct {
	ID            string     `json:"id"`
	QuoteID       string     `json:"quote_id"`
	Version       int        `json:"version"`
	RunType       string     `json:"run_type"`
	Status        Status     `json:"status"`
	IsActive      bool       `json:"is_active"`
	Discarded     bool       `json:"discarded"`
	DiscardReason *string    `json:"discard_reason,omitempty"`
	DispatchedAt  *time.Time `json:"dispatched_at,omitempty"`
	DispatchError *string    `json:"dispatch_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StatusView is the polling projection of a run.
type StatusView struct {
	Status    string    `json:"status"`
	N8NStatus string    `json:"n8n_status"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
	Discarded bool      `json:"discarded"`
}

// DispatchResult describes a delivered analysis request.
type DispatchResult struct {
	RunID        string    `json:"run_id"`
	Files        int       `json:"files"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

func normalizeRunType(runType string) (string, bool) {
	switch runType {
	case "":
		return RunTypeAuto, true
	case RunTypeAuto, RunTypeManual:
		return runType, true
	default:
		return "", false
	}
}
