package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Client-facing success messages. Domain errors are rendered by the
// global error handler.
const (
	msgLoggedOut         = "successfully logged out"
	msgDeactivated       = "User was successfully deactivated."
	msgAvatarDeleted     = "Avatar was successfully deleted."
	msgResetInstructions = "If your email address exists in our database, you will receive a password recovery link at your email address in a few minutes."
)

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors map[string][]string `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// userNotFound renders the directory's 404 for id.
func userNotFound(c echo.Context, id string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Couldn't find User with 'id'=%s", id)})
}
