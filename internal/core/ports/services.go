package ports

import (
	"context"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// SessionService owns the token lifecycle: login, authentication, logout
// and bulk revocation.
type SessionService interface {
	Login(ctx context.Context, login, password, remoteIP string) (string, *domain.User, error)
	Authenticate(ctx context.Context, authorization string) (*domain.Session, error)
	Logout(ctx context.Context, authorization string) error
	RevokeAll(ctx context.Context, userID string) error
}

// RegisterInput is the payload of a new registration. A nil
// PasswordConfirmation means the field was not sent.
type RegisterInput struct {
	FirstName            string
	LastName             string
	Username             string
	Email                string
	Password             string
	PasswordConfirmation *string
	Avatar               *domain.AvatarUpload
}

// UpdateProfileInput carries a profile change. Nil fields are left untouched
// and an empty Password keeps the current one.
type UpdateProfileInput struct {
	CurrentPassword      string
	FirstName            *string
	LastName             *string
	Username             *string
	Email                *string
	Password             string
	PasswordConfirmation *string
	Avatar               *domain.AvatarUpload
}

// AccountService owns registration and self-service account changes.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error)
	Deactivate(ctx context.Context, userID, currentPassword string) error
	DeleteAvatar(ctx context.Context, userID, currentPassword string) error
	// Current loads a kept user for an authenticated session.
	Current(ctx context.Context, userID string) (*domain.User, error)
}

// DirectoryService serves the read-only user directory.
type DirectoryService interface {
	List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	AvatarURL(ctx context.Context, id string) (string, error)
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Token                string
	Password             string
	PasswordConfirmation *string
}

// PasswordService runs the token-based password reset flow.
type PasswordService interface {
	RequestReset(ctx context.Context, email string) error
	Reset(ctx context.Context, in ResetPasswordInput) error
}
