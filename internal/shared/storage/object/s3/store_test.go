package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    []byte
	getKey  string
	putErr  error
	objects map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = in
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getKey = aws.ToString(in.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.objects[f.getKey]))}, nil
}

type fakePresigner struct{ key string }

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = aws.ToString(in.Key)
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.amazonaws.com/" + f.key + "?X-Amz-Signature=abc"}, nil
}

func TestNewWithClientRequiresBucket(t *testing.T) {
	_, err := NewWithClient(&fakeS3{}, &fakePresigner{}, " ")
	require.Error(t, err)
}

func TestSaveUploadsUnderHashedQuotePrefix(t *testing.T) {
	api := &fakeS3{}
	store, err := NewWithClient(api, &fakePresigner{}, "quotes-bucket", WithPrefix("/uploads/"))
	require.NoError(t, err)

	content := []byte("%PDF-1.4 scanned birth certificate")
	key, size, contentType, err := store.Save(context.Background(), "q-42", "Birth Cert.pdf", bytes.NewReader(content))
	require.NoError(t, err)

	assert.EqualValues(t, len(content), size)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, content, api.body)
	assert.True(t, strings.HasSuffix(key, "_Birth Cert.pdf"), key)
	assert.Equal(t, "uploads/"+key, aws.ToString(api.put.Key))
	assert.Equal(t, "q-42", api.put.Metadata["quote-id"])
	assert.Equal(t, s3types.ServerSideEncryptionAes256, api.put.ServerSideEncryption)
}

func TestSaveUsesKMSWhenConfigured(t *testing.T) {
	api := &fakeS3{}
	store, err := NewWithClient(api, &fakePresigner{}, "b", WithKMSKey("alias/quotes"))
	require.NoError(t, err)

	_, _, _, err = store.Save(context.Background(), "q-1", "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, api.put.ServerSideEncryption)
	assert.Equal(t, "alias/quotes", aws.ToString(api.put.SSEKMSKeyId))
}

func TestSaveWrapsPutError(t *testing.T) {
	store, err := NewWithClient(&fakeS3{putErr: errors.New("access denied")}, &fakePresigner{}, "b")
	require.NoError(t, err)

	_, _, _, err = store.Save(context.Background(), "q-1", "a.txt", strings.NewReader("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestOpenAndSignUsePrefixedKey(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"root/k/file.pdf": "data"}}
	presign := &fakePresigner{}
	store, err := NewWithClient(api, presign, "b", WithPrefix("root"))
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rc, err := store.Open(context.Background(), "/k/file.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(data))

	signed, err := store.SignURL(context.Background(), "k/file.pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "root/k/file.pdf", presign.key)
	assert.Contains(t, signed.URL, "X-Amz-Signature")
	assert.Equal(t, now.Add(10*time.Minute), signed.ExpiresAt)
}

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, key, want string
	}{
		{"", "quote/scan.pdf", "quote/scan.pdf"},
		{"root", "/quote/scan.pdf", "root/quote/scan.pdf"},
		{"root/sub", "quote/scan.pdf", "root/sub/quote/scan.pdf"},
		{"root", "", "root"},
	}
	for _, tc := range cases {
		s := &Store{prefix: tc.prefix}
		assert.Equal(t, tc.want, s.objectKey(tc.key))
	}
}
