package feedback

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Service records staff feedback about worker output.
type Service struct {
	Repo Repo
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: time.Now}
}

// Entry describes a feedback record to append. Snapshots are marshaled to JSON.
type Entry struct {
	QuoteID   string
	RunID     string
	AdminID   string
	Type      string
	Text      string
	Original  any
	Corrected any
}

// Record appends a feedback entry. Quote, admin and type are required.
func (s *Service) Record(ctx context.Context, e Entry) (Record, error) {
	if strings.TrimSpace(e.QuoteID) == "" || strings.TrimSpace(e.AdminID) == "" {
		return Record{}, ErrInvalidInput
	}
	if e.Type != TypeEdit && e.Type != TypeDiscard {
		return Record{}, ErrInvalidInput
	}
	original, err := snapshot(e.Original)
	if err != nil {
		return Record{}, err
	}
	corrected, err := snapshot(e.Corrected)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:              uuid.NewString(),
		QuoteID:         e.QuoteID,
		RunID:           e.RunID,
		AdminID:         e.AdminID,
		FeedbackType:    e.Type,
		FeedbackText:    strings.TrimSpace(e.Text),
		WorkerOutput:    original,
		CorrectedValues: corrected,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.Repo.Append(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns a quote's feedback newest first.
func (s *Service) List(ctx context.Context, quoteID string) ([]Record, error) {
	return s.Repo.ListByQuote(ctx, quoteID)
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "marshal feedback snapshot")
	}
	return data, nil
}
