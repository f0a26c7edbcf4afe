package storage

import (
	"context"
	"io"
)

// Provider is the blob-storage collaborator: write-once byte storage
// addressed by a slash-separated key. Written bytes are expected to be
// immediately readable at the same key.
type Provider interface {
	Save(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
}
