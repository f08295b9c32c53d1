package ports

import (
	"context"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// ResetTokenStore keeps single-use password reset tokens.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	// Lookup returns the owning user id without invalidating the token.
	Lookup(ctx context.Context, token string) (string, error)
	// Consume returns the owning user id and invalidates the token. Unknown
	// or expired tokens yield domain.ErrNotFound.
	Consume(ctx context.Context, token string) (string, error)
}

// ResetNotifier hands a freshly issued reset token to the delivery channel.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *domain.User, token string) error
}
