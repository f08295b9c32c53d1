package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const msgAvatarDeleteFailed = "The server was unable to delete the avatar."

// SessionRevoker drops every session of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

// AccountService implements registration, profile updates, avatar removal
// and deactivation.
type AccountService struct {
	users    ports.UserRepository
	sessions SessionRevoker
	hasher   ports.PasswordHasher
	rules    *userRules
	avatars  *avatarAttacher
	log      zerolog.Logger
	now      func() time.Time
}

func NewAccountService(
	users ports.UserRepository,
	sessions SessionRevoker,
	hasher ports.PasswordHasher,
	storage ports.AvatarStorage,
	queue ports.VariantQueue,
	log zerolog.Logger,
) *AccountService {
	s := &AccountService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		rules:    newUserRules(users),
		log:      log,
		now:      time.Now,
	}
	s.avatars = &avatarAttacher{storage: storage, queue: queue, now: func() time.Time { return s.now() }}
	return s
}

func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	user := &domain.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Username:  strings.TrimSpace(in.Username),
		Email:     in.Email,
		Settings:  domain.Settings{Roles: append([]string(nil), domain.DefaultRoles...)},
	}
	user.Normalize()

	verr, err := s.rules.check(ctx, user, in.Password, in.PasswordConfirmation, true, in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if user.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	if in.Avatar != nil {
		if user.Avatar, err = s.avatars.attach(ctx, in.Avatar); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if purgeErr := s.avatars.purge(ctx, user.Avatar); purgeErr != nil {
			s.log.Warn().Err(purgeErr).Msg("failed to remove orphaned avatar")
		}
		return nil, err
	}

	s.avatars.requestVariant(created.ID, created.Avatar)
	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// UpdateProfile re-verifies the current password before looking at any
// other field. A replacement avatar purges the previous one first.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.FindKeptByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.currentPasswordValid(user, in.CurrentPassword) {
		return nil, domain.ErrCurrentPassword
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Username != nil {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	user.Normalize()

	verr, err := s.rules.check(ctx, user, in.Password, in.PasswordConfirmation, false, in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if in.Password != "" {
		if user.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
			return nil, fmt.Errorf("update profile: hash password: %w", err)
		}
	}

	var attached *domain.Avatar
	if in.Avatar != nil {
		if user.Avatar != nil {
			if err := s.removeAvatar(ctx, user); err != nil {
				return nil, fmt.Errorf("update profile: %w", err)
			}
		}
		if attached, err = s.avatars.attach(ctx, in.Avatar); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		user.Avatar = attached
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if purgeErr := s.avatars.purge(ctx, attached); purgeErr != nil {
			s.log.Warn().Err(purgeErr).Str("user_id", userID).Msg("failed to remove orphaned avatar")
		}
		return nil, err
	}

	if attached != nil {
		s.avatars.requestVariant(updated.ID, updated.Avatar)
	}
	s.log.Info().Str("user_id", updated.ID).Msg("profile updated")
	return updated, nil
}

// Deactivate soft-deletes the user and then revokes every session. When the
// soft delete fails no session is touched.
func (s *AccountService) Deactivate(ctx context.Context, userID, currentPassword string) error {
	user, err := s.users.FindKeptByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.currentPasswordValid(user, currentPassword) {
		return domain.ErrCurrentPassword
	}

	msg := fmt.Sprintf("There was an error deactivating user ID: %s.", user.ID)
	if err := s.users.Discard(ctx, user.ID, s.now().UTC()); err != nil {
		return &domain.InternalError{Message: msg, Err: err}
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return &domain.InternalError{Message: msg, Err: err}
	}

	s.log.Info().Str("user_id", user.ID).Msg("user deactivated")
	return nil
}

// DeleteAvatar checks for an attached avatar before the password.
func (s *AccountService) DeleteAvatar(ctx context.Context, userID, currentPassword string) error {
	user, err := s.users.FindKeptByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == nil {
		return domain.ErrAvatarNotFound
	}
	if !s.currentPasswordValid(user, currentPassword) {
		return domain.ErrCurrentPassword
	}

	if err := s.removeAvatar(ctx, user); err != nil {
		return &domain.InternalError{Message: msgAvatarDeleteFailed, Err: err}
	}

	reloaded, err := s.users.FindKeptByID(ctx, userID)
	if err != nil {
		return &domain.InternalError{Message: msgAvatarDeleteFailed, Err: err}
	}
	if reloaded.Avatar != nil {
		return &domain.InternalError{Message: msgAvatarDeleteFailed, Err: fmt.Errorf("avatar still attached to user %s", userID)}
	}

	s.log.Info().Str("user_id", userID).Msg("avatar deleted")
	return nil
}

func (s *AccountService) Current(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		// A hard-deleted owner takes its allowlist rows with it.
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrRevokedToken
		}
		return nil, err
	}
	if !user.Kept() {
		return nil, domain.ErrAccountInactive
	}
	return user, nil
}

func (s *AccountService) currentPasswordValid(user *domain.User, plain string) bool {
	return plain != "" && s.hasher.Verify(user.PasswordHash, plain)
}

// removeAvatar purges blobs and clears the reference on the row.
func (s *AccountService) removeAvatar(ctx context.Context, user *domain.User) error {
	if err := s.avatars.purge(ctx, user.Avatar); err != nil {
		return err
	}
	if err := s.users.ClearAvatar(ctx, user.ID); err != nil {
		return fmt.Errorf("clear avatar of user %s: %w", user.ID, err)
	}
	user.Avatar = nil
	return nil
}
