package dispatch

import (
	"encoding/json"
	"time"
)

// FileRef points the worker at one quote file through a signed URL.
type FileRef struct {
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	FileURL   string    `json:"file_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Payload is the analysis request delivered to the worker. Callback fields
// are omitted when the service has no public address.
type Payload struct {
	QuoteID         string    `json:"quote_id"`
	RunID           string    `json:"run_id"`
	RunType         string    `json:"run_type"`
	Version         int       `json:"version"`
	Status          string    `json:"status"`
	IsActive        bool      `json:"is_active"`
	Discarded       bool      `json:"discarded"`
	Files           []FileRef `json:"files"`
	BatchMode       bool      `json:"batch_mode"`
	ReplaceExisting bool      `json:"replace_existing"`
	CallbackURL     string    `json:"callback_url,omitempty"`
	CallbackSecret  string    `json:"callback_secret,omitempty"`
}

// EncodePayload returns the JSON representation of a payload.
func EncodePayload(p Payload) ([]byte, error) {
	if p.Files == nil {
		p.Files = []FileRef{}
	}
	return json.Marshal(p)
}
