package handler

import (
	"time"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

// --- Requests ---

// userParams is the content of the "user" envelope every account endpoint
// accepts. Optional fields are pointers so updates can tell absent from empty.
type userParams struct {
	Login                *string `json:"login"`
	Email                *string `json:"email"`
	Username             *string `json:"username"`
	FirstName            *string `json:"first_name"`
	LastName             *string `json:"last_name"`
	Password             *string `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation"`
	CurrentPassword      *string `json:"current_password"`
	ResetPasswordToken   *string `json:"reset_password_token"`
}

type userEnvelope struct {
	User userParams `json:"user"`
}

// listUsersQuery is pre-filled with defaults, so only parameters present in
// the query string are checked against the bounds.
type listUsersQuery struct {
	Page  int `query:"page" validate:"min=1,max=1000000"`
	Items int `query:"items" validate:"min=1"`
}

// --- Responses ---

type link struct {
	Method string `json:"method,omitempty"`
	URL    string `json:"url"`
}

type userLinks struct {
	Self          link  `json:"self"`
	Avatar        *link `json:"avatar"`
	DestroyAvatar *link `json:"destroy_avatar"`
}

type userAttributes struct {
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Settings       domain.Settings `json:"settings"`
	AvatarMetadata map[string]any  `json:"avatar_metadata"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type userResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes userAttributes `json:"attributes"`
	Links      userLinks      `json:"links"`
}

type userDocument struct {
	Data userResource `json:"data"`
}

type listMeta struct {
	Pagination domain.Pagination `json:"pagination"`
}

type userListDocument struct {
	Data []userResource `json:"data"`
	Meta listMeta       `json:"meta"`
}
