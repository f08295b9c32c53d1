package ports

import (
	"context"
	"io"
)

// AvatarStorage holds avatar blobs by key.
type AvatarStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// URL returns a location a client can fetch the blob from.
	URL(ctx context.Context, key string) (string, error)
}

// VariantJob asks for the resized variant of one uploaded avatar.
type VariantJob struct {
	UserID      string
	AvatarKey   string
	ContentType string
}

// VariantQueue accepts variant jobs for asynchronous processing.
type VariantQueue interface {
	Enqueue(job VariantJob)
}

// VariantProcessor generates and records one avatar variant.
type VariantProcessor interface {
	Process(ctx context.Context, job VariantJob) error
}
