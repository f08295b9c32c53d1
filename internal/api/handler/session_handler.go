package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// SessionHandler serves login and logout.
type SessionHandler struct {
	sessions ports.SessionService
}

func NewSessionHandler(sessions ports.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login authenticates a user and returns a bearer token in the
// Authorization header.
//
// @Summary      Sign in
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body      userEnvelope  true  "Login (username or email) and password"
// @Success      200   {object}  userDocument
// @Header       200   {string}  Authorization  "Bearer <token>"
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var env userEnvelope
	if err := c.Bind(&env); err != nil {
		return errInvalidPayload
	}

	token, user, err := h.sessions.Login(c.Request().Context(), loginOf(env.User), deref(env.User.Password), c.RealIP())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+token)
	return c.JSON(http.StatusOK, toUserDocument(user))
}

// Logout revokes the presented token.
//
// @Summary      Sign out
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      500  {object}  errorResponse
// @Router       /logout [delete]
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
		metrics.LogoutsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.LogoutsTotal.WithLabelValues("success").Inc()
	metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: msgLoggedOut})
}
