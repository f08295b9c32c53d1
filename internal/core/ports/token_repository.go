package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// AllowlistRepository persists the jti of every issued, still-valid token.
type AllowlistRepository interface {
	// Record fails with domain.ErrDuplicateToken when the jti already exists.
	Record(ctx context.Context, token *domain.AllowlistedToken) error
	IsAllowlisted(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (*domain.IssuedToken, error)
	Verify(token string) (*domain.Claims, error)
}

// PasswordHasher hashes and checks plaintext passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}
