package service

import (
	"context"
	"fmt"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// DirectoryService lists and shows users.
type DirectoryService struct {
	users   ports.UserRepository
	storage ports.AvatarStorage
}

func NewDirectoryService(users ports.UserRepository, storage ports.AvatarStorage) *DirectoryService {
	return &DirectoryService{users: users, storage: storage}
}

// List returns one page of kept users, oldest first.
func (s *DirectoryService) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	count, err := s.users.CountKept(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := s.users.ListKept(ctx, page.Items, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &domain.UserPage{
		Users:      users,
		Pagination: domain.NewPagination(page, count),
	}, nil
}

// Get returns a user by id whether or not it has been discarded.
func (s *DirectoryService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// AvatarURL returns where the user's avatar variant can be fetched, falling
// back to the original while the variant is pending.
func (s *DirectoryService) AvatarURL(ctx context.Context, id string) (string, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user.Avatar == nil {
		return "", domain.ErrAvatarNotFound
	}
	url, err := s.storage.URL(ctx, user.Avatar.DisplayKey())
	if err != nil {
		return "", fmt.Errorf("avatar url for user %s: %w", id, err)
	}
	return url, nil
}
