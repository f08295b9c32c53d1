package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// routerSessions accepts "Bearer user" and "Bearer admin".
type routerSessions struct{}

func (routerSessions) Login(context.Context, string, string, string) (string, *domain.User, error) {
	return "", nil, domain.ErrInvalidCredentials
}

func (routerSessions) Authenticate(_ context.Context, authorization string) (*domain.Session, error) {
	switch authorization {
	case "Bearer user":
		return &domain.Session{UserID: "user-1", Jti: "j1"}, nil
	case "Bearer admin":
		return &domain.Session{UserID: "admin-1", Jti: "j2"}, nil
	case "":
		return nil, domain.ErrNoToken
	}
	return nil, domain.ErrMalformedToken
}

func (routerSessions) Logout(context.Context, string) error { return nil }

func (routerSessions) RevokeAll(context.Context, string) error { return nil }

type routerAccounts struct{}

func (routerAccounts) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	return nil, domain.NewValidationError()
}

func (routerAccounts) UpdateProfile(context.Context, string, ports.UpdateProfileInput) (*domain.User, error) {
	return nil, domain.ErrCurrentPassword
}

func (routerAccounts) Deactivate(context.Context, string, string) error { return nil }

func (routerAccounts) DeleteAvatar(context.Context, string, string) error {
	return domain.ErrAvatarNotFound
}

func (routerAccounts) Current(_ context.Context, userID string) (*domain.User, error) {
	roles := []string{domain.RoleUser}
	if userID == "admin-1" {
		roles = append(roles, domain.RoleAdmin)
	}
	return &domain.User{ID: userID, Username: userID, Settings: domain.Settings{Roles: roles}}, nil
}

type routerDirectory struct{}

func (routerDirectory) List(_ context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	return &domain.UserPage{Users: []*domain.User{}, Pagination: domain.NewPagination(page, 0)}, nil
}

func (routerDirectory) Get(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (routerDirectory) AvatarURL(context.Context, string) (string, error) {
	return "", domain.ErrAvatarNotFound
}

type routerPasswords struct{}

func (routerPasswords) RequestReset(context.Context, string) error { return nil }

func (routerPasswords) Reset(context.Context, ports.ResetPasswordInput) error { return nil }

// NewRouter registers Prometheus collectors globally, so it is built once.
func TestNewRouter_Routes(t *testing.T) {
	e := NewRouter(Dependencies{
		Log:         zerolog.Nop(),
		Sessions:    routerSessions{},
		Accounts:    routerAccounts{},
		Directory:   routerDirectory{},
		Passwords:   routerPasswords{},
		Checks:      map[string]handler.DependencyCheck{"postgres": func(context.Context) error { return nil }},
		PageSize:    20,
		MaxPageSize: 100,
	})

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		code   int
		substr string
	}{
		{"liveness", http.MethodGet, "/health", "", "", http.StatusOK, `"ok"`},
		{"readiness", http.MethodGet, "/health/ready", "", "", http.StatusOK, "postgres"},
		{"directory needs token", http.MethodGet, "/v1/users", "", "", http.StatusUnauthorized, "You need to sign in or sign up before continuing."},
		{"bad token", http.MethodGet, "/v1/users", "Bearer junk", "", http.StatusUnauthorized, "Invalid token"},
		{"directory", http.MethodGet, "/v1/users", "Bearer user", "", http.StatusOK, `"pagination"`},
		{"bad page", http.MethodGet, "/v1/users?page=-1", "Bearer user", "", http.StatusBadRequest, "page"},
		{"unknown user", http.MethodGet, "/v1/users/nope", "Bearer user", "", http.StatusNotFound, "Couldn't find User with 'id'=nope"},
		{"revoke forbidden", http.MethodDelete, "/v1/users/user-1/sessions", "Bearer user", "", http.StatusForbidden, "forbidden"},
		{"revoke as admin", http.MethodDelete, "/v1/users/user-1/sessions", "Bearer admin", "", http.StatusNoContent, ""},
		{"login", http.MethodPost, "/login", "", `{"user":{"login":"a","password":"b"}}`, http.StatusUnauthorized, "Invalid Login or password."},
		{"logout", http.MethodDelete, "/logout", "Bearer user", "", http.StatusOK, "successfully logged out"},
		{"register invalid", http.MethodPost, "/registration", "", `{"user":{}}`, http.StatusUnprocessableEntity, `"errors"`},
		{"avatar missing", http.MethodDelete, "/registration/avatar", "Bearer user", `{"user":{"current_password":"x"}}`, http.StatusNotFound, "An avatar is not attached to the user."},
		{"update needs token", http.MethodPut, "/registration", "", `{"user":{}}`, http.StatusUnauthorized, ""},
		{"update", http.MethodPut, "/registration", "Bearer user", `{"user":{}}`, http.StatusUnprocessableEntity, "current_password"},
		{"reset request", http.MethodPost, "/password", "", `{"user":{"email":"x@example.com"}}`, http.StatusOK, "If your email address exists"},
		{"no blob route for url backends", http.MethodGet, "/avatars/abc", "", "", http.StatusNotFound, ""},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK, "accounts_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			if rec.Code != tc.code {
				t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.code, rec.Code, rec.Body.String())
			}
			if tc.substr != "" && !strings.Contains(rec.Body.String(), tc.substr) {
				t.Fatalf("%s %s: expected body to contain %q, got %s", tc.method, tc.path, tc.substr, rec.Body.String())
			}
		})
	}
}
