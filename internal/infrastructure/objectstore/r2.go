package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"NewsCast/internal/ports"
)

// Options describes an S3-compatible bucket (Cloudflare R2 in production).
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
	UseSSL        bool
}

// Store uploads published artifacts and derives their public URLs.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

var _ ports.ObjectStore = (*Store)(nil)

// New connects to the bucket endpoint. The endpoint may carry a scheme, which
// then overrides UseSSL.
func New(opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("object store endpoint and bucket are required")
	}

	endpoint, secure := splitEndpoint(opts.Endpoint, opts.UseSSL)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}

	return &Store{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

// Upload stores body under key and returns the public URL of the object.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType, cacheControl string) (string, error) {
	key = strings.TrimLeft(key, "/")
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL joins the public base URL and key.
func (s *Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimRight(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimRight(strings.TrimPrefix(endpoint, "http://"), "/"), false
	}
	return strings.TrimRight(endpoint, "/"), useSSL
}
