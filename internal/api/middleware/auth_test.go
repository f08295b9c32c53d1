package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

type stubAuthenticator struct {
	authenticateFn func(ctx context.Context, authorization string) (*domain.Session, error)
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, authorization string) (*domain.Session, error) {
	return s.authenticateFn(ctx, authorization)
}

type stubUserLoader struct {
	currentFn func(ctx context.Context, userID string) (*domain.User, error)
}

func (s *stubUserLoader) Current(ctx context.Context, userID string) (*domain.User, error) {
	return s.currentFn(ctx, userID)
}

func liveSession(_ context.Context, _ string) (*domain.Session, error) {
	return &domain.Session{UserID: "u1", Jti: "jti-1"}, nil
}

func keptUser(_ context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Username: "alice"}, nil
}

func runAuth(t *testing.T, header string, auth *stubAuthenticator, users *stubUserLoader) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Authenticate(auth, users)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func TestAuthenticate_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	auth := &stubAuthenticator{authenticateFn: func(_ context.Context, authorization string) (*domain.Session, error) {
		if authorization != "Bearer abc" {
			t.Fatalf("unexpected header %q", authorization)
		}
		return &domain.Session{UserID: "u1", Jti: "jti-1"}, nil
	}}

	handler := Authenticate(auth, &stubUserLoader{currentFn: keptUser})(func(c echo.Context) error {
		user, _ := c.Get(UserKey).(*domain.User)
		if user == nil || user.ID != "u1" {
			t.Fatalf("user not set: %+v", user)
		}
		session, _ := c.Get(SessionKey).(*domain.Session)
		if session == nil || session.Jti != "jti-1" {
			t.Fatalf("session not set: %+v", session)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticate_TokenFailures(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrNoToken, MsgSignInRequired},
		{domain.ErrExpiredToken, "Signature has expired"},
		{fmt.Errorf("%w: bad signature", domain.ErrMalformedToken), "Invalid token"},
		{domain.ErrMissingJti, "Missing jti"},
		{domain.ErrRevokedToken, "revoked token"},
	}

	for _, tc := range cases {
		auth := &stubAuthenticator{authenticateFn: func(context.Context, string) (*domain.Session, error) {
			return nil, tc.err
		}}
		rec, called := runAuth(t, "Bearer x", auth, &stubUserLoader{currentFn: keptUser})

		if called {
			t.Fatalf("%v: next should not be called", tc.err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%v: expected 401, got %d", tc.err, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%v: expected %q in body, got %s", tc.err, tc.want, rec.Body.String())
		}
	}
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	users := &stubUserLoader{currentFn: func(context.Context, string) (*domain.User, error) {
		return nil, domain.ErrAccountInactive
	}}
	rec, called := runAuth(t, "Bearer x", &stubAuthenticator{authenticateFn: liveSession}, users)

	if called {
		t.Fatalf("next should not be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Your account has been deactivated.") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthenticate_StoreFailurePassesThrough(t *testing.T) {
	storeErr := errors.New("connection refused")
	auth := &stubAuthenticator{authenticateFn: func(context.Context, string) (*domain.Session, error) {
		return nil, storeErr
	}}

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := Authenticate(auth, &stubUserLoader{currentFn: keptUser})(func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
