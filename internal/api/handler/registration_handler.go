package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// RegistrationHandler serves sign-up and the signed-in user's own account.
type RegistrationHandler struct {
	accounts ports.AccountService
}

func NewRegistrationHandler(accounts ports.AccountService) *RegistrationHandler {
	return &RegistrationHandler{accounts: accounts}
}

// Create registers a new user.
//
// @Summary      Sign up
// @Tags         registration
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      userEnvelope  true  "New user; multipart requests may add a user[avatar] file"
// @Success      201   {object}  userDocument
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  validationResponse
// @Failure      500   {object}  errorResponse
// @Router       /registration [post]
func (h *RegistrationHandler) Create(c echo.Context) error {
	params, avatar, err := bindUser(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Register(c.Request().Context(), toRegisterInput(params, avatar))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserDocument(user))
}

// Update changes the signed-in user's profile. current_password is required.
//
// @Summary      Update own profile
// @Tags         registration
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userEnvelope  true  "Changed fields plus current_password"
// @Success      201   {object}  userDocument
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  validationResponse
// @Failure      500   {object}  errorResponse
// @Router       /registration [put]
func (h *RegistrationHandler) Update(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	params, avatar, err := bindUser(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.UpdateProfile(c.Request().Context(), current.ID, toUpdateInput(params, avatar))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserDocument(user))
}

// Destroy deactivates the signed-in user and ends every session.
//
// @Summary      Deactivate own account
// @Tags         registration
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userEnvelope  true  "current_password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /registration [delete]
func (h *RegistrationHandler) Destroy(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	params, _, err := bindUser(c)
	if err != nil {
		return err
	}

	if err := h.accounts.Deactivate(c.Request().Context(), current.ID, deref(params.CurrentPassword)); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.WithLabelValues("deactivation").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: msgDeactivated})
}

// DestroyAvatar removes the signed-in user's avatar.
//
// @Summary      Delete own avatar
// @Tags         registration
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userEnvelope  true  "current_password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /registration/avatar [delete]
func (h *RegistrationHandler) DestroyAvatar(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	params, _, err := bindUser(c)
	if err != nil {
		return err
	}

	if err := h.accounts.DeleteAvatar(c.Request().Context(), current.ID, deref(params.CurrentPassword)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msgAvatarDeleted})
}
