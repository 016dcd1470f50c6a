// Package storage defines the blob store contract consumed by the ingest
// pipeline and the catalog, plus its S3 implementation.
package storage

import (
	"context"
	"io"
)

// BlobStore persists binary payloads under opaque keys and resolves them to
// public URLs. Delete is idempotent: deleting a missing key is not an error.
type BlobStore interface {
	Put(ctx context.Context, body io.Reader, key string, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
