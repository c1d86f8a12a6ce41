package quotes

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains the quote operations the analysis flow depends on.
type Service struct {
	Repo Repo
}

// Create records a new quote. An empty id is replaced with a generated one.
func (s *Service) Create(ctx context.Context, quoteID string) (Quote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		quoteID = uuid.NewString()
	}
	now := time.Now().UTC()
	q := Quote{ID: quoteID, CreatedAt: now, UpdatedAt: now}
	if err := s.Repo.Create(ctx, q); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Get returns a quote by id.
func (s *Service) Get(ctx context.Context, quoteID string) (Quote, error) {
	return s.Repo.GetByID(ctx, strings.TrimSpace(quoteID))
}
