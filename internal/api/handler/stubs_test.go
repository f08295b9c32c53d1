package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

type stubSessions struct {
	loginFn     func(ctx context.Context, login, password, remoteIP string) (string, *domain.User, error)
	logoutFn    func(ctx context.Context, authorization string) error
	revokeAllFn func(ctx context.Context, userID string) error
}

func (s *stubSessions) Login(ctx context.Context, login, password, remoteIP string) (string, *domain.User, error) {
	return s.loginFn(ctx, login, password, remoteIP)
}

func (s *stubSessions) Authenticate(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrNoToken
}

func (s *stubSessions) Logout(ctx context.Context, authorization string) error {
	return s.logoutFn(ctx, authorization)
}

func (s *stubSessions) RevokeAll(ctx context.Context, userID string) error {
	return s.revokeAllFn(ctx, userID)
}

type stubAccounts struct {
	registerFn     func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	updateFn       func(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error)
	deactivateFn   func(ctx context.Context, userID, currentPassword string) error
	deleteAvatarFn func(ctx context.Context, userID, currentPassword string) error
}

func (s *stubAccounts) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccounts) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateFn(ctx, userID, in)
}

func (s *stubAccounts) Deactivate(ctx context.Context, userID, currentPassword string) error {
	return s.deactivateFn(ctx, userID, currentPassword)
}

func (s *stubAccounts) DeleteAvatar(ctx context.Context, userID, currentPassword string) error {
	return s.deleteAvatarFn(ctx, userID, currentPassword)
}

func (s *stubAccounts) Current(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type stubDirectory struct {
	listFn      func(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error)
	getFn       func(ctx context.Context, id string) (*domain.User, error)
	avatarURLFn func(ctx context.Context, id string) (string, error)
}

func (s *stubDirectory) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	return s.listFn(ctx, page)
}

func (s *stubDirectory) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubDirectory) AvatarURL(ctx context.Context, id string) (string, error) {
	return s.avatarURLFn(ctx, id)
}

type stubPasswords struct {
	requestFn func(ctx context.Context, email string) error
	resetFn   func(ctx context.Context, in ports.ResetPasswordInput) error
}

func (s *stubPasswords) RequestReset(ctx context.Context, email string) error {
	return s.requestFn(ctx, email)
}

func (s *stubPasswords) Reset(ctx context.Context, in ports.ResetPasswordInput) error {
	return s.resetFn(ctx, in)
}

type stubBlobs struct {
	blobs map[string][]byte
}

func (s *stubBlobs) Put(context.Context, string, string, []byte) error { return nil }

func (s *stubBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *stubBlobs) Delete(context.Context, string) error { return nil }

func (s *stubBlobs) URL(_ context.Context, key string) (string, error) { return "/" + key, nil }

func sampleUser() *domain.User {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:        "8f14e45f-ceea-467f-a0e6-7a1b2c3d4e5f",
		Email:     "alice@example.com",
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Smith",
		Settings:  domain.Settings{Roles: []string{domain.RoleUser}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// newContext builds an echo context for a JSON request, optionally signed in.
func newContext(e *echo.Echo, method, target, body string, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.UserKey, user)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
