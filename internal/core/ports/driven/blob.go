package driven

import "context"

// BlobStore holds staged file content for the ingestion pipeline.
type BlobStore interface {
	// Put writes content under key, replacing any existing blob.
	Put(ctx context.Context, key string, content []byte, contentType string) error

	// Get reads the blob stored under key.
	// Returns domain.ErrNotFound if no blob exists.
	Get(ctx context.Context, key string) ([]byte, error)
}
