package object

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// SignedURL is a time-limited read link for a stored object.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Signer issues read links the analysis worker can fetch without credentials.
type Signer interface {
	SignURL(ctx context.Context, storageKey string, ttl time.Duration) (SignedURL, error)
}
