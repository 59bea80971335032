package storage

import (
	"context"
	"io"
)

// ProofStore holds uploaded proof files. Keys are caller-chosen and opaque;
// the submission row records the key returned by Save.
type ProofStore interface {
	Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}
