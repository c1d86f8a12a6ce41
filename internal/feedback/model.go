package feedback

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	TypeEdit    = "edit"
	TypeDiscard = "discard"
)

var ErrInvalidInput = errors.New("invalid feedback")

// Record is an append-only audit entry left by staff when they correct or
// reject worker output.
type Record struct {
	ID              string          `json:"id"`
	QuoteID         string          `json:"quote_id"`
	RunID           string          `json:"run_id,omitempty"`
	AdminID         string          `json:"admin_id"`
	FeedbackType    string          `json:"feedback_type"`
	FeedbackText    string          `json:"feedback_text"`
	WorkerOutput    json.RawMessage `json:"worker_output,omitempty"`
	CorrectedValues json.RawMessage `json:"corrected_values,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
