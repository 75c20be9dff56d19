package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ObjectStore defines the interface for remote object storage
type ObjectStore interface {
	// Put uploads a local file under the given object key
	Put(ctx context.Context, localPath, key string) error

	// Close closes any resources used by the store
	Close() error
}

// UploadConfig represents configuration for the remote upload mirror
type UploadConfig struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`

	// AWS SDK specific settings
	AWSRegion   string `json:"aws_region,omitempty"`
	AWSProfile  string `json:"aws_profile,omitempty"`
	AWSEndpoint string `json:"aws_endpoint,omitempty"`

	// Performance settings
	Concurrency int           `json:"concurrency"`
	Timeout     time.Duration `json:"timeout"`
}

// Enabled reports whether a remote upload target is configured.
func (c UploadConfig) Enabled() bool {
	return c.Bucket != ""
}

// StorageError represents a storage operation error
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s operation on %s: %v",
		e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error
func NewStorageError(operation, path string, err error) *StorageError {
	return &StorageError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewObjectStore creates an object store for the configured upload target.
func NewObjectStore(ctx context.Context, config UploadConfig, logger *zap.Logger) (ObjectStore, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("upload bucket is not configured")
	}
	return NewS3Store(ctx, config, logger)
}
