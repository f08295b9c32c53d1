package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	msgNotSignedIn  = "The user doesn't appear to be signed in. Error: "
	msgNotLoggedOut = "User was NOT successfully logged out"
)

// SessionService implements login, the authentication gate, logout and
// bulk revocation on top of the token allowlist.
type SessionService struct {
	users  ports.UserRepository
	tokens ports.AllowlistRepository
	issuer ports.TokenIssuer
	hasher ports.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

func NewSessionService(
	users ports.UserRepository,
	tokens ports.AllowlistRepository,
	issuer ports.TokenIssuer,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		hasher: hasher,
		log:    log,
		now:    time.Now,
	}
}

// Login checks credentials, issues a token and allowlists its jti. Unknown
// logins and wrong passwords fail identically.
func (s *SessionService) Login(ctx context.Context, login, password, remoteIP string) (string, *domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindKeptByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same hashing cost as a wrong password.
			s.hasher.Verify(s.decoy(), password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	issued, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", nil, &domain.InternalError{Message: "internal server error", Err: fmt.Errorf("issue token for user %s: %w", user.ID, err)}
	}

	if err := s.tokens.Record(ctx, &domain.AllowlistedToken{
		Jti:       issued.Jti,
		Audience:  issued.Audience,
		ExpiresAt: issued.ExpiresAt,
		UserID:    user.ID,
	}); err != nil {
		return "", nil, &domain.InternalError{
			Message: "internal server error",
			Err:     fmt.Errorf("allowlist jti %s for user %s: %w", issued.Jti, user.ID, err),
		}
	}

	at := s.now().UTC()
	if err := s.users.TrackSignIn(ctx, user.ID, remoteIP, at); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record sign-in")
	} else {
		user.LastSignInAt, user.LastSignInIP = user.CurrentSignInAt, user.CurrentSignInIP
		user.CurrentSignInAt, user.CurrentSignInIP = &at, remoteIP
		user.SignInCount++
	}

	s.log.Info().Str("user_id", user.ID).Str("jti", issued.Jti).Msg("user logged in")
	return issued.Token, user, nil
}

// decoy returns a hash in the configured scheme for unknown logins to
// verify against.
func (s *SessionService) decoy() string {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash("decoy-password-for-unknown-logins")
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy password hash unavailable")
			return
		}
		s.decoyHash = h
	})
	return s.decoyHash
}

// Authenticate resolves an Authorization header value to a live session.
func (s *SessionService) Authenticate(ctx context.Context, authorization string) (*domain.Session, error) {
	token, err := ExtractToken(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := s.issuer.Verify(token)
	if err != nil {
		return nil, err
	}

	ok, err := s.tokens.IsAllowlisted(ctx, claims.Jti)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return nil, domain.ErrRevokedToken
	}

	return &domain.Session{
		UserID:    claims.Subject,
		Jti:       claims.Jti,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Logout revokes the presented token. A token that verifies but is already
// revoked still counts as signed out; every other outcome is reported as an
// InternalError carrying the client message.
func (s *SessionService) Logout(ctx context.Context, authorization string) error {
	token, err := ExtractToken(authorization)
	var claims *domain.Claims
	if err == nil {
		claims, err = s.issuer.Verify(token)
	}
	if err != nil {
		return &domain.InternalError{Message: msgNotSignedIn + domain.TokenErrorMessage(err), Err: err}
	}

	if err := s.tokens.Revoke(ctx, claims.Jti); err != nil {
		s.log.Error().Err(err).Str("jti", claims.Jti).Msg("failed to revoke token")
	}

	still, err := s.tokens.IsAllowlisted(ctx, claims.Jti)
	if err != nil {
		return &domain.InternalError{Message: msgNotLoggedOut, Err: fmt.Errorf("check jti %s: %w", claims.Jti, err)}
	}
	if still {
		return &domain.InternalError{Message: msgNotLoggedOut, Err: fmt.Errorf("jti %s still allowlisted", claims.Jti)}
	}

	s.log.Info().Str("user_id", claims.Subject).Str("jti", claims.Jti).Msg("user logged out")
	return nil
}

// RevokeAll drops every allowlisted token of userID in one statement.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke all sessions for user %s: %w", userID, err)
	}
	s.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("sessions revoked")
	return nil
}
