package driven

import (
	"context"
	"time"
)

// FileStore handles source file persistence
type FileStore interface {
	// Upload stores the file bytes at the given path
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// Download retrieves the file bytes at the given path
	Download(ctx context.Context, path string) ([]byte, error)

	// Remove deletes the file at the given path
	Remove(ctx context.Context, path string) error

	// CreateSignedURL returns a time-limited URL for direct file access
	CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
