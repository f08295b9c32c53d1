package redis

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const defaultResetTTL = 6 * time.Hour

// ResetTokenStore keeps password reset tokens in Redis. Only the SHA-256
// digest of a token is stored; a user holds at most one live token.
// Key format: password_reset:<digest> -> user id, password_reset:user:<id> -> digest
type ResetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResetTokenStore(client *redis.Client, ttl time.Duration) *ResetTokenStore {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return &ResetTokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token for userID and invalidates the previous one.
func (s *ResetTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reset token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	digest := tokenDigest(token)

	previous, err := s.client.Get(ctx, userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("reset token lookup: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, tokenKey(previous))
		}
		pipe.Set(ctx, tokenKey(digest), userID, s.ttl)
		pipe.Set(ctx, userKey(userID), digest, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reset token store: %w", err)
	}
	return token, nil
}

func (s *ResetTokenStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, tokenKey(tokenDigest(token))).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reset token lookup: %w", err)
	}
	return userID, nil
}

// Consume atomically reads and deletes the token.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, tokenKey(tokenDigest(token))).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reset token consume: %w", err)
	}
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return "", fmt.Errorf("reset token consume: %w", err)
	}
	return userID, nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func tokenKey(digest string) string {
	return "password_reset:" + digest
}

func userKey(userID string) string {
	return "password_reset:user:" + userID
}
