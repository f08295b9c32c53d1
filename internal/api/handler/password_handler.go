package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// PasswordHandler serves the reset-token flow.
type PasswordHandler struct {
	passwords ports.PasswordService
}

func NewPasswordHandler(passwords ports.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// Create sends reset instructions. The response is the same whether or not
// the email belongs to an account.
//
// @Summary      Request a password reset
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body      userEnvelope  true  "email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /password [post]
func (h *PasswordHandler) Create(c echo.Context) error {
	var env userEnvelope
	if err := c.Bind(&env); err != nil {
		return errInvalidPayload
	}

	if err := h.passwords.RequestReset(c.Request().Context(), deref(env.User.Email)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgResetInstructions})
}

// Update sets a new password using a reset token.
//
// @Summary      Reset password
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body  userEnvelope  true  "reset_password_token, password and password_confirmation"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  validationResponse
// @Failure      500   {object}  errorResponse
// @Router       /password [put]
func (h *PasswordHandler) Update(c echo.Context) error {
	var env userEnvelope
	if err := c.Bind(&env); err != nil {
		return errInvalidPayload
	}

	if err := h.passwords.Reset(c.Request().Context(), toResetInput(env.User)); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.WithLabelValues("password_reset").Inc()
	return c.NoContent(http.StatusNoContent)
}
