package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// AvatarVariantService renders the 150x150 display variant of an avatar.
type AvatarVariantService struct {
	users   ports.UserRepository
	storage ports.AvatarStorage
	log     zerolog.Logger
}

func NewAvatarVariantService(users ports.UserRepository, storage ports.AvatarStorage, log zerolog.Logger) *AvatarVariantService {
	return &AvatarVariantService{users: users, storage: storage, log: log}
}

// Process resizes the original to fit the variant box, stores it and records
// it on the user. A variant whose original was replaced meanwhile is dropped.
func (s *AvatarVariantService) Process(ctx context.Context, job ports.VariantJob) error {
	rc, err := s.storage.Open(ctx, job.AvatarKey)
	if err != nil {
		return fmt.Errorf("open avatar %s: %w", job.AvatarKey, err)
	}
	defer rc.Close()

	src, format, err := image.Decode(io.LimitReader(rc, domain.MaxAvatarBytes+1))
	if err != nil {
		return fmt.Errorf("decode avatar %s: %w", job.AvatarKey, err)
	}

	dst := resizeToFit(src, domain.AvatarVariantSize)

	var buf bytes.Buffer
	contentType := "image/png"
	if format == "jpeg" {
		contentType = "image/jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return fmt.Errorf("encode variant of %s: %w", job.AvatarKey, err)
	}

	variantKey := job.AvatarKey + variantSuffix
	if err := s.storage.Put(ctx, variantKey, contentType, buf.Bytes()); err != nil {
		return fmt.Errorf("store variant %s: %w", variantKey, err)
	}

	current, err := s.users.SetAvatarVariant(ctx, job.UserID, job.AvatarKey, variantKey)
	if err != nil {
		return fmt.Errorf("record variant %s: %w", variantKey, err)
	}
	if !current {
		s.log.Debug().Str("user_id", job.UserID).Str("key", job.AvatarKey).Msg("avatar replaced before variant finished")
		return s.storage.Delete(ctx, variantKey)
	}

	s.log.Debug().Str("user_id", job.UserID).Str("variant", variantKey).Msg("avatar variant ready")
	return nil
}

// resizeToFit scales src so that its longer side equals box, keeping the
// aspect ratio.
func resizeToFit(src image.Image, box int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}

	dw, dh := box, box
	if w > h {
		dh = max(1, h*box/w)
	} else if h > w {
		dw = max(1, w*box/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
