package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// AllowlistRepository stores one allowlisted_jwts row per live token.
type AllowlistRepository struct {
	db DBTX
}

func NewAllowlistRepository(db DBTX) *AllowlistRepository {
	return &AllowlistRepository{db: db}
}

func (r *AllowlistRepository) Record(ctx context.Context, token *domain.AllowlistedToken) error {
	query := `INSERT INTO allowlisted_jwts (jti, aud, exp, user_id)
		VALUES ($1, $2, $3, $4)`

	aud := sql.NullString{String: token.Audience, Valid: token.Audience != ""}
	if _, err := r.db.ExecContext(ctx, query, token.Jti, aud, token.ExpiresAt, token.UserID); err != nil {
		if code, _ := pgError(err); code == codeUniqueViolation {
			return fmt.Errorf("record jti %s: %w", token.Jti, domain.ErrDuplicateToken)
		}
		return fmt.Errorf("record jti %s: %w", token.Jti, err)
	}
	return nil
}

func (r *AllowlistRepository) IsAllowlisted(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM allowlisted_jwts WHERE jti = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup jti %s: %w", jti, err)
	}
	return ok, nil
}

// Revoke deletes one row. Unknown jti values are not an error.
func (r *AllowlistRepository) Revoke(ctx context.Context, jti string) error {
	query := `DELETE FROM allowlisted_jwts WHERE jti = $1`

	if _, err := r.db.ExecContext(ctx, query, jti); err != nil {
		return fmt.Errorf("revoke jti %s: %w", jti, err)
	}
	return nil
}

// RevokeAllForUser deletes every row of a user in a single statement.
func (r *AllowlistRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM allowlisted_jwts WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens of user %s: %w", userID, err)
	}
	return res.RowsAffected()
}

// PurgeExpired deletes rows whose exp lies strictly before now.
func (r *AllowlistRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM allowlisted_jwts WHERE exp < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return res.RowsAffected()
}
