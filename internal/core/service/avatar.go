package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const variantSuffix = "-150x150"

// avatarAttacher moves avatar blobs in and out of storage. It never touches
// the user row; callers persist the returned reference.
type avatarAttacher struct {
	storage ports.AvatarStorage
	queue   ports.VariantQueue
	now     func() time.Time
}

func (a *avatarAttacher) attach(ctx context.Context, up *domain.AvatarUpload) (*domain.Avatar, error) {
	key := domain.AvatarKeyPrefix + uuid.NewString()
	ct := avatarContentType(up)

	if err := a.storage.Put(ctx, key, ct, up.Data); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	meta := map[string]any{
		"content_type": ct,
		"identified":   true,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data)); err == nil {
		meta["width"] = cfg.Width
		meta["height"] = cfg.Height
		meta["analyzed"] = true
	}

	return &domain.Avatar{
		Key:         key,
		Filename:    up.Filename,
		ContentType: ct,
		ByteSize:    int64(len(up.Data)),
		Metadata:    meta,
		AttachedAt:  a.now().UTC(),
	}, nil
}

// purge deletes the original and its variant.
func (a *avatarAttacher) purge(ctx context.Context, av *domain.Avatar) error {
	if av == nil {
		return nil
	}
	if err := a.storage.Delete(ctx, av.Key); err != nil {
		return fmt.Errorf("delete avatar %s: %w", av.Key, err)
	}
	if av.VariantKey != "" {
		if err := a.storage.Delete(ctx, av.VariantKey); err != nil {
			return fmt.Errorf("delete avatar variant %s: %w", av.VariantKey, err)
		}
	}
	return nil
}

func (a *avatarAttacher) requestVariant(userID string, av *domain.Avatar) {
	if a.queue == nil || av == nil {
		return
	}
	a.queue.Enqueue(ports.VariantJob{
		UserID:      userID,
		AvatarKey:   av.Key,
		ContentType: av.ContentType,
	})
}
