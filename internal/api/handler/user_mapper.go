package handler

import (
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const destroyAvatarPath = "/registration/avatar"

// --- Request → Service input ---

func toRegisterInput(p userParams, avatar *domain.AvatarUpload) ports.RegisterInput {
	return ports.RegisterInput{
		FirstName:            deref(p.FirstName),
		LastName:             deref(p.LastName),
		Username:             deref(p.Username),
		Email:                deref(p.Email),
		Password:             deref(p.Password),
		PasswordConfirmation: p.PasswordConfirmation,
		Avatar:               avatar,
	}
}

func toUpdateInput(p userParams, avatar *domain.AvatarUpload) ports.UpdateProfileInput {
	return ports.UpdateProfileInput{
		CurrentPassword:      deref(p.CurrentPassword),
		FirstName:            p.FirstName,
		LastName:             p.LastName,
		Username:             p.Username,
		Email:                p.Email,
		Password:             deref(p.Password),
		PasswordConfirmation: p.PasswordConfirmation,
		Avatar:               avatar,
	}
}

func toResetInput(p userParams) ports.ResetPasswordInput {
	return ports.ResetPasswordInput{
		Token:                deref(p.ResetPasswordToken),
		Password:             deref(p.Password),
		PasswordConfirmation: p.PasswordConfirmation,
	}
}

// loginOf accepts either "login" or "email" as the identifier.
func loginOf(p userParams) string {
	if p.Login != nil {
		return *p.Login
	}
	return deref(p.Email)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// --- Domain → HTTP response ---

func userPath(id string) string {
	return "/v1/users/" + id
}

func toUserResource(u *domain.User) userResource {
	attrs := userAttributes{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Settings:  u.Settings,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
	if attrs.Settings.Roles == nil {
		attrs.Settings.Roles = []string{}
	}

	links := userLinks{Self: link{URL: userPath(u.ID)}}
	if u.Avatar != nil {
		attrs.AvatarMetadata = u.Avatar.PublicMetadata()
		links.Avatar = &link{URL: userPath(u.ID) + "/avatar"}
		links.DestroyAvatar = &link{Method: "delete", URL: destroyAvatarPath}
	}

	return userResource{
		ID:         u.ID,
		Type:       "user",
		Attributes: attrs,
		Links:      links,
	}
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{Data: toUserResource(u)}
}

func toUserListDocument(page *domain.UserPage) userListDocument {
	data := make([]userResource, len(page.Users))
	for i, u := range page.Users {
		data[i] = toUserResource(u)
	}
	return userListDocument{
		Data: data,
		Meta: listMeta{Pagination: page.Pagination},
	}
}
