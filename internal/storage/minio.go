package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/opencivic/dispofix/internal/config"
)

// compile-time check that Client satisfies the ObjectStore interface.
var _ ObjectStore = (*Client)(nil)

// Client wraps the MinIO SDK and implements ObjectStore against any
// S3-compatible endpoint.
type Client struct {
	client *minio.Client
	bucket string
}

// NewClient builds a new object-store client from the storage configuration.
func NewClient(cfg config.StorageConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new client: %w", err)
	}

	return &Client{
		client: mc,
		bucket: cfg.Bucket,
	}, nil
}

// CopyInPlace copies an object onto itself with the x-amz-metadata-directive
// set to REPLACE, rewriting Content-Type and Content-Disposition while leaving
// the content bytes untouched.
func (c *Client) CopyInPlace(ctx context.Context, key, contentType, contentDisposition string) error {
	src := minio.CopySrcOptions{
		Bucket: c.bucket,
		Object: key,
	}
	dst := minio.CopyDestOptions{
		Bucket:          c.bucket,
		Object:          key,
		ReplaceMetadata: true,
		UserMetadata: map[string]string{
			"Content-Type":        contentType,
			"Content-Disposition": contentDisposition,
		},
	}

	if _, err := c.client.CopyObject(ctx, dst, src); err != nil {
		return wrapCopyError(err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
