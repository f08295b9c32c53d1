package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const userColumns = `id, email, username, first_name, last_name, encrypted_password, settings,
	avatar_key, avatar_variant_key, avatar_filename, avatar_content_type, avatar_byte_size,
	avatar_metadata, avatar_attached_at, sign_in_count, current_sign_in_at, last_sign_in_at,
	current_sign_in_ip, last_sign_in_ip, discarded_at, created_at, updated_at`

const (
	constraintEmail    = "index_users_on_lower_email"
	constraintUsername = "index_users_on_lower_username"
)

// UserRepository is the PostgreSQL credential store. Lookups named Kept
// filter on discarded_at IS NULL.
type UserRepository struct {
	db  DBTX
	now func() time.Time
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (email, username, first_name, last_name, encrypted_password, settings,
		avatar_key, avatar_variant_key, avatar_filename, avatar_content_type, avatar_byte_size,
		avatar_metadata, avatar_attached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + userColumns

	settings, err := json.Marshal(user.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	av, err := avatarArgs(user.Avatar)
	if err != nil {
		return nil, err
	}

	args := append([]any{user.Email, user.Username, user.FirstName, user.LastName, user.PasswordHash, string(settings)}, av...)
	created, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, uniqueError("create user", err)
	}
	return created, nil
}

// Update writes profile, credential and avatar columns of a kept user.
// avatar_variant_key is only written when the avatar itself changes, so a
// variant recorded by the worker since user was loaded survives.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `UPDATE users SET email = $2, username = $3, first_name = $4, last_name = $5,
		encrypted_password = $6, settings = $7, avatar_key = $8,
		avatar_variant_key = CASE WHEN avatar_key IS DISTINCT FROM $8 THEN $9 ELSE avatar_variant_key END,
		avatar_filename = $10, avatar_content_type = $11, avatar_byte_size = $12,
		avatar_metadata = $13, avatar_attached_at = $14, updated_at = $15
		WHERE id = $1 AND discarded_at IS NULL
		RETURNING ` + userColumns

	settings, err := json.Marshal(user.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	av, err := avatarArgs(user.Avatar)
	if err != nil {
		return nil, err
	}

	args := []any{user.ID, user.Email, user.Username, user.FirstName, user.LastName, user.PasswordHash, string(settings)}
	args = append(args, av...)
	args = append(args, r.now().UTC())

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, uniqueError("update user", err)
	}
	return updated, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) FindKeptByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND discarded_at IS NULL`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) FindKeptByLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE (lower(username) = lower($1) OR lower(email) = lower($1)) AND discarded_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1`
	return r.findOne(ctx, query, login)
}

func (r *UserRepository) FindKeptByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND discarded_at IS NULL`
	return r.findOne(ctx, query, email)
}

// EmailTaken also counts discarded users, which still hold their unique index entry.
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id::text <> $2)`
	return r.exists(ctx, query, email, excludeID)
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1) AND id::text <> $2)`
	return r.exists(ctx, query, username, excludeID)
}

// Discard sets discarded_at on a kept user. Already discarded or unknown
// users fail with domain.ErrUserNotFound.
func (r *UserRepository) Discard(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET discarded_at = $2, updated_at = $2 WHERE id = $1 AND discarded_at IS NULL`
	return r.execOne(ctx, "discard user", query, id, at)
}

func (r *UserRepository) ListKept(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE discarded_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CountKept(ctx context.Context) (int, error) {
	query := `SELECT count(*) FROM users WHERE discarded_at IS NULL`

	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// TrackSignIn shifts the current sign-in columns to last and stores the new one.
func (r *UserRepository) TrackSignIn(ctx context.Context, id, ip string, at time.Time) error {
	query := `UPDATE users SET sign_in_count = sign_in_count + 1,
		last_sign_in_at = current_sign_in_at, last_sign_in_ip = current_sign_in_ip,
		current_sign_in_at = $2, current_sign_in_ip = $3
		WHERE id = $1`
	return r.execOne(ctx, "track sign in", query, id, at, ip)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET encrypted_password = $2, updated_at = $3 WHERE id = $1 AND discarded_at IS NULL`
	return r.execOne(ctx, "update password", query, id, passwordHash, r.now().UTC())
}

func (r *UserRepository) ClearAvatar(ctx context.Context, id string) error {
	query := `UPDATE users SET avatar_key = NULL, avatar_variant_key = NULL, avatar_filename = NULL,
		avatar_content_type = NULL, avatar_byte_size = NULL, avatar_metadata = NULL,
		avatar_attached_at = NULL, updated_at = $2
		WHERE id = $1`
	return r.execOne(ctx, "clear avatar", query, id, r.now().UTC())
}

func (r *UserRepository) SetAvatarVariant(ctx context.Context, userID, avatarKey, variantKey string) (bool, error) {
	query := `UPDATE users SET avatar_variant_key = $3 WHERE id = $1 AND avatar_key = $2`

	res, err := r.db.ExecContext(ctx, query, userID, avatarKey, variantKey)
	if err != nil {
		return false, fmt.Errorf("set avatar variant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set avatar variant: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		// Ids that are not valid UUIDs cannot match any row.
		if code, _ := pgError(err); code == codeInvalidTextFormat {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("uniqueness check: %w", err)
	}
	return ok, nil
}

func (r *UserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if code, _ := pgError(err); code == codeInvalidTextFormat {
			return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
	}
	return nil
}

// uniqueError turns a lost uniqueness race into the same field error the
// pre-save checks produce.
func uniqueError(op string, err error) error {
	code, constraint := pgError(err)
	if code != codeUniqueViolation {
		return fmt.Errorf("%s: %w", op, err)
	}
	verr := domain.NewValidationError()
	switch constraint {
	case constraintEmail:
		verr.Add("email", "has already been taken")
	case constraintUsername:
		verr.Add("username", "has already been taken")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	return verr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                                domain.User
		settings, avatarMeta             []byte
		avKey, avVariant, avName, avType sql.NullString
		avSize                           sql.NullInt64
		avAttached                       sql.NullTime
		curAt, lastAt, discardedAt       sql.NullTime
		curIP, lastIP                    sql.NullString
	)

	if err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &settings,
		&avKey, &avVariant, &avName, &avType, &avSize,
		&avatarMeta, &avAttached, &u.SignInCount, &curAt, &lastAt,
		&curIP, &lastIP, &discardedAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &u.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	if avKey.Valid {
		u.Avatar = &domain.Avatar{
			Key:         avKey.String,
			VariantKey:  avVariant.String,
			Filename:    avName.String,
			ContentType: avType.String,
			ByteSize:    avSize.Int64,
			AttachedAt:  avAttached.Time,
		}
		if len(avatarMeta) > 0 {
			if err := json.Unmarshal(avatarMeta, &u.Avatar.Metadata); err != nil {
				return nil, fmt.Errorf("decode avatar metadata: %w", err)
			}
		}
	}

	u.CurrentSignInAt = nullTimePtr(curAt)
	u.LastSignInAt = nullTimePtr(lastAt)
	u.DiscardedAt = nullTimePtr(discardedAt)
	u.CurrentSignInIP = curIP.String
	u.LastSignInIP = lastIP.String

	return &u, nil
}

// avatarArgs returns the seven avatar column values in table order.
func avatarArgs(a *domain.Avatar) ([]any, error) {
	if a == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil}, nil
	}

	var meta any
	if a.Metadata != nil {
		raw, err := json.Marshal(a.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode avatar metadata: %w", err)
		}
		meta = string(raw)
	}

	return []any{
		a.Key,
		sql.NullString{String: a.VariantKey, Valid: a.VariantKey != ""},
		a.Filename,
		a.ContentType,
		a.ByteSize,
		meta,
		a.AttachedAt,
	}, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
