package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// JWTIssuer signs HS256 bearer tokens carrying sub, jti, exp and iat.
type JWTIssuer struct {
	secret   []byte
	ttl      time.Duration
	audience string
	now      func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration, audience string) *JWTIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTIssuer{
		secret:   []byte(secret),
		ttl:      ttl,
		audience: audience,
		now:      time.Now,
	}
}

// Issue signs a fresh token for userID with a random jti.
func (i *JWTIssuer) Issue(userID string) (*domain.IssuedToken, error) {
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(i.ttl)
	jti := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        jti,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.IssuedToken{
		Token:     signed,
		Jti:       jti,
		Audience:  i.audience,
		ExpiresAt: exp,
	}, nil
}

// Verify checks signature and expiry. Expired tokens fail with
// domain.ErrExpiredToken, tokens without a jti with domain.ErrMissingJti and
// everything else with domain.ErrMalformedToken.
func (i *JWTIssuer) Verify(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrNoToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}

	if claims.ID == "" {
		return nil, domain.ErrMissingJti
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", domain.ErrMalformedToken)
	}

	out := &domain.Claims{
		Subject:  claims.Subject,
		Jti:      claims.ID,
		Audience: claims.Audience,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ExtractToken returns the last whitespace-separated segment of an
// Authorization header value.
func ExtractToken(authorization string) (string, error) {
	parts := strings.Fields(authorization)
	if len(parts) == 0 {
		return "", domain.ErrNoToken
	}
	return parts[len(parts)-1], nil
}
