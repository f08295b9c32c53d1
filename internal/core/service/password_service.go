package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// PasswordService runs the reset-token password flow.
type PasswordService struct {
	users    ports.UserRepository
	resets   ports.ResetTokenStore
	notifier ports.ResetNotifier
	hasher   ports.PasswordHasher
	sessions SessionRevoker
	log      zerolog.Logger
}

func NewPasswordService(
	users ports.UserRepository,
	resets ports.ResetTokenStore,
	notifier ports.ResetNotifier,
	hasher ports.PasswordHasher,
	sessions SessionRevoker,
	log zerolog.Logger,
) *PasswordService {
	return &PasswordService{
		users:    users,
		resets:   resets,
		notifier: notifier,
		hasher:   hasher,
		sessions: sessions,
		log:      log,
	}
}

// RequestReset issues and dispatches a reset token. Unknown emails succeed
// silently.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.FindKeptByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("request reset: %w", err)
	}

	token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if err := s.notifier.NotifyPasswordReset(ctx, user, token); err != nil {
		return fmt.Errorf("request reset: notify: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset issued")
	return nil
}

// Reset sets a new password for the owner of a valid reset token and ends
// all of that user's sessions. The token is only consumed once the new
// password passes validation.
func (s *PasswordService) Reset(ctx context.Context, in ports.ResetPasswordInput) error {
	if in.Token == "" {
		verr := domain.NewValidationError()
		verr.Add("reset_password_token", msgBlank)
		return verr
	}

	userID, err := s.resets.Lookup(ctx, in.Token)
	if err != nil {
		return s.tokenError(err)
	}
	user, err := s.users.FindKeptByID(ctx, userID)
	if err != nil {
		return s.tokenError(err)
	}

	if verr := checkPassword(in.Password, in.PasswordConfirmation); verr.HasErrors() {
		return verr
	}

	if _, err := s.resets.Consume(ctx, in.Token); err != nil {
		return s.tokenError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions after password reset")
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// tokenError turns lookup misses into the field error and passes store
// failures through.
func (s *PasswordService) tokenError(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
		verr := domain.NewValidationError()
		verr.Add("reset_password_token", msgInvalid)
		return verr
	}
	return fmt.Errorf("reset password: %w", err)
}
