package local

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "quote-1", "passport.pdf", bytes.NewReader([]byte("%PDF-1.4 body")))
	require.NoError(t, err)
	assert.EqualValues(t, len("%PDF-1.4 body"), size)
	assert.Equal(t, "application/pdf", mime)
	assert.True(t, strings.HasSuffix(key, "_passport.pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Open(context.Background(), "../etc/passwd")
	require.Error(t, err)
}

func TestSignURLAndVerify(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store := New(t.TempDir(), WithSigning("https://api.example.com/", "k3y"), WithClock(func() time.Time { return now }))

	signed, err := store.SignURL(context.Background(), "abc/file.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), signed.ExpiresAt)
	require.True(t, strings.HasPrefix(signed.URL, "https://api.example.com"+DownloadPath+"?"))

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	q := u.Query()
	require.NoError(t, store.Verify(q.Get("key"), q.Get("expires"), q.Get("sig")))
	assert.ErrorIs(t, store.Verify("abc/other.pdf", q.Get("expires"), q.Get("sig")), ErrSignatureInvalid)

	now = now.Add(16 * time.Minute)
	assert.ErrorIs(t, store.Verify(q.Get("key"), q.Get("expires"), q.Get("sig")), ErrSignatureExpired)
}

func TestSignURLRequiresConfiguration(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.SignURL(context.Background(), "abc/file.pdf", time.Minute)
	require.Error(t, err)
}
