package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const avatarBucket = "avatars"

// BlobPath is the route prefix the API serves GridFS avatars from.
const BlobPath = "/avatars/"

// AvatarBucket stores avatar blobs in GridFS, using the storage key as the
// file id. Blobs are served by the API under BlobPath.
type AvatarBucket struct {
	bucket *gridfs.Bucket
}

func NewAvatarBucket(db *mongo.Database) (*AvatarBucket, error) {
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(avatarBucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &AvatarBucket{bucket: b}, nil
}

// Put replaces any blob stored under key.
func (b *AvatarBucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := b.Delete(ctx, key); err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	if err := b.bucket.UploadFromStreamWithID(key, key, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("gridfs upload %s: %w", key, err)
	}
	return nil
}

func (b *AvatarBucket) Open(_ context.Context, key string) (io.ReadCloser, error) {
	stream, err := b.bucket.OpenDownloadStream(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("gridfs open %s: %w", key, err)
	}
	return stream, nil
}

func (b *AvatarBucket) Delete(_ context.Context, key string) error {
	if err := b.bucket.Delete(key); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("gridfs delete %s: %w", key, err)
	}
	return nil
}

// URL points at the API's blob route.
func (b *AvatarBucket) URL(_ context.Context, key string) (string, error) {
	return BlobPath + strings.TrimPrefix(key, domain.AvatarKeyPrefix), nil
}
