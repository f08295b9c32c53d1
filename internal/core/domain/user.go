package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultRoles is assigned to every user on first creation.
var DefaultRoles = []string{RoleUser}

// Settings is the free-form per-user settings document.
type Settings struct {
	Roles []string `json:"roles"`
}

// HasRole reports whether role is in the user's flat role list.
func (s Settings) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User models an account holder.
type User struct {
	ID              string
	Email           string
	Username        string
	FirstName       string
	LastName        string
	PasswordHash    string
	Settings        Settings
	Avatar          *Avatar
	SignInCount     int
	CurrentSignInAt *time.Time
	LastSignInAt    *time.Time
	CurrentSignInIP string
	LastSignInIP    string
	DiscardedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Kept reports whether the user has not been soft-deleted.
func (u *User) Kept() bool {
	return u.DiscardedAt == nil
}

// Normalize applies the per-save field normalization: email is downcased and
// both name fields are capitalized.
func (u *User) Normalize() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FirstName = Capitalize(u.FirstName)
	u.LastName = Capitalize(u.LastName)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
