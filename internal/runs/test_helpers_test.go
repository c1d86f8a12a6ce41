package runs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"translation-backend/internal/billing"
	"translation-backend/internal/dispatch"
	"translation-backend/internal/documents"
	"translation-backend/internal/feedback"
	"translation-backend/internal/quotefiles"
	"translation-backend/internal/quotes"
	"translation-backend/internal/shared/resilience"
	"translation-backend/internal/shared/storage/object"
)

type fakeSigner struct {
	err error
}

func (f fakeSigner) SignURL(ctx context.Context, key string, ttl time.Duration) (object.SignedURL, error) {
	if f.err != nil {
		return object.SignedURL{}, f.err
	}
	return object.SignedURL{
		URL:       "https://files.test/" + key + "?sig=x",
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(ttl),
	}, nil
}

type recordingSender struct {
	mu       sync.Mutex
	payloads []dispatch.Payload
	err      error
}

func (r *recordingSender) Send(ctx context.Context, p dispatch.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

type failingBilling struct{}

func (failingBilling) ApplyRun(ctx context.Context, quoteID, runID string, docs []documents.Document) (billing.Result, error) {
	return billing.Result{}, errors.New("pricing unavailable")
}

type fixture struct {
	svc      *Service
	runs     *MemoryRepo
	quotes   *quotes.MemoryRepo
	docs     *documents.MemoryRepo
	files    *quotefiles.MemoryRepo
	feedback *feedback.MemoryRepo
	sender   *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		runs:     NewMemoryRepo(),
		quotes:   quotes.NewMemoryRepo(),
		docs:     documents.NewMemoryRepo(),
		files:    quotefiles.NewMemoryRepo(),
		feedback: feedback.NewMemoryRepo(),
		sender:   &recordingSender{},
	}
	f.svc = &Service{
		Repo:      f.runs,
		Quotes:    f.quotes,
		Documents: f.docs,
		Files:     f.files,
		Signer:    fakeSigner{},
		Sender:    f.sender,
		Feedback:  feedback.NewService(f.feedback),
		Billing:   &billing.Aggregator{Quotes: f.quotes, DefaultPageRate: 50},
		Options: DispatchOptions{
			PublicBaseURL:  "https://api.test/",
			CallbackSecret: "s3cret",
			Retry: resilience.RetryConfig{
				MaxAttempts: 2,
				Sleep:       func(context.Context, time.Duration) error { return nil },
			},
		},
	}
	require.NoError(t, f.quotes.Create(context.Background(), quotes.Quote{ID: "q-1", CreatedAt: time.Now().UTC()}))
	return f
}

func (f *fixture) createRun(t *testing.T) Run {
	t.Helper()
	run, err := f.svc.CreateRun(context.Background(), "q-1", "")
	require.NoError(t, err)
	return run
}

func (f *fixture) finish(t *testing.T, run Run, docs ...documents.Document) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.runs.UpdateStatus(ctx, run.ID, StatusReady))
	_, err := f.docs.ReplaceForRun(ctx, run.QuoteID, run.ID, docs)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
