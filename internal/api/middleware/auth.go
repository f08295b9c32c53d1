package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/domain"
)

// Context keys set by Authenticate.
const (
	UserKey    = "user"
	SessionKey = "session"
)

// MsgSignInRequired is returned when a protected route gets no token at all.
const MsgSignInRequired = "You need to sign in or sign up before continuing."

// Authenticator resolves an Authorization header to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*domain.Session, error)
}

// UserLoader loads the kept owner of a session.
type UserLoader interface {
	Current(ctx context.Context, userID string) (*domain.User, error)
}

// Authenticate verifies the bearer token against the allowlist, loads its
// owner and injects both into the context under UserKey and SessionKey.
func Authenticate(sessions Authenticator, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			session, err := sessions.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return rejected(err)
			}

			user, err := users.Current(ctx, session.UserID)
			if err != nil {
				return rejected(err)
			}

			c.Set(SessionKey, session)
			c.Set(UserKey, user)
			return next(c)
		}
	}
}

// rejected turns an authentication error into a 401. Store failures pass
// through untouched so they surface as 500s.
func rejected(err error) error {
	reason := failureReason(err)
	if reason == "" {
		return err
	}
	metrics.AuthenticationFailuresTotal.WithLabelValues(reason).Inc()

	if errors.Is(err, domain.ErrNoToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, MsgSignInRequired)
	}
	return echo.NewHTTPError(http.StatusUnauthorized, domain.TokenErrorMessage(err))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoToken):
		return "no_token"
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	case errors.Is(err, domain.ErrMissingJti):
		return "missing_jti"
	case errors.Is(err, domain.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrAccountInactive):
		return "inactive"
	}
	return ""
}
