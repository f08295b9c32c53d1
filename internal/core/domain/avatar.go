package domain

import "time"

const (
	// AvatarKeyPrefix namespaces avatar blobs in storage.
	AvatarKeyPrefix = "avatars/"

	// MaxAvatarBytes is the exclusive upload size limit for avatars (1 MiB).
	MaxAvatarBytes = 1 << 20

	AvatarVariantSize = 150
)

// AllowedAvatarTypes lists the accepted avatar content types.
var AllowedAvatarTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// internal bookkeeping keys never exposed through metadata.
var hiddenMetadataKeys = map[string]struct{}{
	"identified": {},
	"analyzed":   {},
}

// Avatar is the stored reference to a user's uploaded image.
type Avatar struct {
	Key         string
	VariantKey  string
	Filename    string
	ContentType string
	ByteSize    int64
	Metadata    map[string]any
	AttachedAt  time.Time
}

// AvatarUpload is an avatar file received from a client, before attach.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PublicMetadata returns byte size and filename merged with custom fields,
// minus storage bookkeeping.
func (a *Avatar) PublicMetadata() map[string]any {
	out := make(map[string]any, len(a.Metadata)+2)
	for k, v := range a.Metadata {
		if _, hidden := hiddenMetadataKeys[k]; hidden {
			continue
		}
		out[k] = v
	}
	out["byte_size"] = a.ByteSize
	out["name"] = a.Filename
	return out
}

// DisplayKey returns the variant key when one has been generated, and the
// original key otherwise.
func (a *Avatar) DisplayKey() string {
	if a.VariantKey != "" {
		return a.VariantKey
	}
	return a.Key
}
