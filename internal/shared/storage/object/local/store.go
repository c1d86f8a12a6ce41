package local

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"translation-backend/internal/shared/storage/object"
	"translation-backend/internal/shared/util"
)

// DownloadPath is where signed links for locally stored files are served.
const DownloadPath = "/api/v1/files/download"

var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrSignatureExpired = errors.New("signature expired")
)

// Store implements ObjectStore and Signer using the local filesystem.
type Store struct {
	baseDir    string
	publicURL  string
	signingKey []byte
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSigning enables signed download links rooted at publicURL.
func WithSigning(publicURL, key string) Option {
	return func(s *Store) {
		s.publicURL = strings.TrimRight(publicURL, "/")
		s.signingKey = []byte(key)
	}
}

// WithClock overrides the time source used for link expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string, opts ...Option) *Store {
	s := &Store{baseDir: baseDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the reader to disk under the namespace with a random prefix.
func (s *Store) Save(ctx context.Context, namespace string, fileName string, r io.Reader) (string, int64, string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", eris.Wrap(err, "sanitize file name")
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	dirKey := util.HashKey(namespace)
	finalName := fmt.Sprintf("%s_%s", randomID(), sanitizedName)

	dirPath := filepath.Join(s.baseDir, dirKey)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", 0, "", eris.Wrap(err, "mkdir")
	}

	f, err := os.OpenFile(filepath.Join(dirPath, finalName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, "", eris.Wrap(err, "open file")
	}
	defer f.Close()

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", eris.Wrap(readErr, "read sniff")
	}
	mimeType := http.DetectContentType(sniff[:n])

	if _, err := f.Write(sniff[:n]); err != nil {
		return "", 0, "", eris.Wrap(err, "write sniff")
	}
	rest, err := io.Copy(f, r)
	if err != nil {
		return "", 0, "", eris.Wrap(err, "write body")
	}

	return filepath.ToSlash(filepath.Join(dirKey, finalName)), int64(n) + rest, mimeType, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanKey(storageKey)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.baseDir, clean))
}

// SignURL returns a download link valid for ttl.
func (s *Store) SignURL(ctx context.Context, storageKey string, ttl time.Duration) (object.SignedURL, error) {
	if err := ctx.Err(); err != nil {
		return object.SignedURL{}, err
	}
	if len(s.signingKey) == 0 || s.publicURL == "" {
		return object.SignedURL{}, eris.New("local store signing is not configured")
	}
	if _, err := cleanKey(storageKey); err != nil {
		return object.SignedURL{}, err
	}
	expiresAt := s.now().Add(ttl).UTC().Truncate(time.Second)
	expires := strconv.FormatInt(expiresAt.Unix(), 10)

	q := url.Values{}
	q.Set("key", storageKey)
	q.Set("expires", expires)
	q.Set("sig", s.signature(storageKey, expires))
	return object.SignedURL{
		URL:       s.publicURL + DownloadPath + "?" + q.Encode(),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks a signed link's signature and expiry.
func (s *Store) Verify(storageKey, expires, sig string) error {
	if len(s.signingKey) == 0 {
		return ErrSignatureInvalid
	}
	want := s.signature(storageKey, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureInvalid
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if s.now().After(time.Unix(unix, 0)) {
		return ErrSignatureExpired
	}
	return nil
}

func (s *Store) signature(storageKey, expires string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(storageKey))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func cleanKey(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", eris.New("invalid storage key")
	}
	return clean, nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

var (
	_ object.ObjectStore = (*Store)(nil)
	_ object.Signer      = (*Store)(nil)
)
