package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"

	"translation-backend/internal/shared/storage/object"
	"translation-backend/internal/shared/util"
)

// API is the subset of the S3 client used for quote files.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Presigner issues GET links for stored quote files.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix places every object under prefix inside the bucket.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = strings.Trim(strings.TrimSpace(prefix), "/") }
}

// WithKMSKey encrypts uploads with the given KMS key instead of AES256.
func WithKMSKey(keyID string) Option {
	return func(s *Store) { s.kmsKeyID = strings.TrimSpace(keyID) }
}

// Store keeps uploaded quote files in S3 and presigns them for the worker.
type Store struct {
	api      API
	presign  Presigner
	bucket   string
	prefix   string
	kmsKeyID string
	now      func() time.Time
}

// New loads the default AWS configuration and builds a Store.
func New(ctx context.Context, region, bucket string, opts ...Option) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(cfg)
	return NewWithClient(client, s3.NewPresignClient(client), bucket, opts...)
}

// NewWithClient builds a Store around existing clients.
func NewWithClient(api API, presign Presigner, bucket string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, eris.New("s3 bucket is required")
	}
	s := &Store{api: api, presign: presign, bucket: bucket, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save uploads a quote file. Keys group files by a hash of the quote id so
// customer identifiers do not appear in bucket listings.
func (s *Store) Save(ctx context.Context, quoteID string, fileName string, r io.Reader) (string, int64, string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", eris.Wrap(err, "sanitize file name")
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	storageKey := path.Join(util.HashKey(quoteID), fileID(s.now)+"_"+name)
	key := s.objectKey(storageKey)

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", 0, "", eris.Wrap(err, "read file header")
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	body := &countingReader{r: io.MultiReader(bytes.NewReader(head), r)}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"quote-id": quoteID},
	}
	if s.kmsKeyID != "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		in.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", 0, "", eris.Wrapf(err, "s3 put %s/%s", s.bucket, key)
	}
	return storageKey, body.n, contentType, nil
}

// Open streams a stored file.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := s.objectKey(storageKey)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, eris.Wrapf(err, "s3 get %s/%s", s.bucket, key)
	}
	return out.Body, nil
}

// SignURL presigns a GET valid for ttl.
func (s *Store) SignURL(ctx context.Context, storageKey string, ttl time.Duration) (object.SignedURL, error) {
	key := s.objectKey(storageKey)
	expires := s.now().Add(ttl).UTC()
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return object.SignedURL{}, eris.Wrapf(err, "s3 presign %s/%s", s.bucket, key)
	}
	return object.SignedURL{URL: req.URL, ExpiresAt: expires}, nil
}

func (s *Store) objectKey(storageKey string) string {
	storageKey = strings.TrimLeft(storageKey, "/")
	switch {
	case s.prefix == "":
		return storageKey
	case storageKey == "":
		return s.prefix
	default:
		return s.prefix + "/" + storageKey
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func fileID(now func() time.Time) string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}

var (
	_ object.ObjectStore = (*Store)(nil)
	_ object.Signer      = (*Store)(nil)
)
