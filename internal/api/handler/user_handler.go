package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// UserHandler serves the user directory and admin session control.
type UserHandler struct {
	directory   ports.DirectoryService
	sessions    ports.SessionService
	pageSize    int
	maxPageSize int
}

func NewUserHandler(directory ports.DirectoryService, sessions ports.SessionService, pageSize, maxPageSize int) *UserHandler {
	return &UserHandler{
		directory:   directory,
		sessions:    sessions,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

// List handles GET /v1/users.
//
// @Summary      List active users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number, from 1"
// @Param        items  query     int  false  "Items per page"
// @Success      200    {object}  userListDocument
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	q := listUsersQuery{Page: 1, Items: h.pageSize}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pagination parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	page := h.pageRequest(q)
	result, err := h.directory.List(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserListDocument(result))
}

func (h *UserHandler) pageRequest(q listUsersQuery) domain.PageRequest {
	page := domain.PageRequest{Page: q.Page, Items: q.Items}
	if page.Items > h.maxPageSize {
		page.Items = h.maxPageSize
	}
	return page
}

// Show handles GET /v1/users/:id. Deactivated users are still shown.
//
// @Summary      Show a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userDocument
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Show(c echo.Context) error {
	id := c.Param("id")
	user, err := h.directory.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return userNotFound(c, id)
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserDocument(user))
}

// Avatar handles GET /v1/users/:id/avatar by redirecting to the blob.
//
// @Summary      Fetch a user's avatar
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      302
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id}/avatar [get]
func (h *UserHandler) Avatar(c echo.Context) error {
	id := c.Param("id")
	url, err := h.directory.AvatarURL(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return userNotFound(c, id)
		}
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

// RevokeSessions handles DELETE /v1/users/:id/sessions. Admin only.
//
// @Summary      Revoke every session of a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/users/{id}/sessions [delete]
func (h *UserHandler) RevokeSessions(c echo.Context) error {
	if err := h.sessions.RevokeAll(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("admin").Inc()
	return c.NoContent(http.StatusNoContent)
}
