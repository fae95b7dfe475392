// Package storage keeps certificate PDFs and payment receipts in S3-compatible
// object storage.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrObjectNotFound is returned when the requested key does not exist in the bucket.
	ErrObjectNotFound = errors.New("storage object not found")
	// ErrContentTypeNotAllowed is returned when a bucket policy refuses a MIME type.
	ErrContentTypeNotAllowed = errors.New("content type not allowed")
	// ErrFileSize is returned for empty or oversized uploads.
	ErrFileSize = errors.New("file size out of range")
)

// ObjectStore is the object storage surface the permit files need.
type ObjectStore interface {
	// EnsureBucket creates the bucket if it doesn't exist.
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	// GetObject reads a whole object. A missing key yields ErrObjectNotFound.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	// PresignGet returns a link valid for ttl that downloads key as downloadName.
	PresignGet(ctx context.Context, bucket, key, downloadName string, ttl time.Duration) (string, error)
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
