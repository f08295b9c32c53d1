package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// UserRepository is the credential store. Every lookup named Kept excludes
// soft-deleted users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindKeptByID(ctx context.Context, id string) (*domain.User, error)
	// FindKeptByLogin matches login against username or email, case-insensitively.
	FindKeptByLogin(ctx context.Context, login string) (*domain.User, error)
	FindKeptByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	Discard(ctx context.Context, id string, at time.Time) error
	ListKept(ctx context.Context, limit, offset int) ([]*domain.User, error)
	CountKept(ctx context.Context) (int, error)
	TrackSignIn(ctx context.Context, id, ip string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ClearAvatar(ctx context.Context, id string) error
	// SetAvatarVariant records variantKey only while avatarKey is still the
	// user's current avatar. It reports whether a row was updated.
	SetAvatarVariant(ctx context.Context, userID, avatarKey, variantKey string) (bool, error)
}
