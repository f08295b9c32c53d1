package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

const avatarFormField = "user[avatar]"

var errInvalidPayload = echo.NewHTTPError(http.StatusBadRequest, "invalid payload")

// bindUser reads the "user" envelope from a JSON body, or from user[...]
// fields and an optional user[avatar] file of a multipart form.
func bindUser(c echo.Context) (userParams, *domain.AvatarUpload, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return bindUserForm(c)
	}

	var env userEnvelope
	if err := c.Bind(&env); err != nil {
		return userParams{}, nil, errInvalidPayload
	}
	return env.User, nil, nil
}

func bindUserForm(c echo.Context) (userParams, *domain.AvatarUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return userParams{}, nil, errInvalidPayload
	}

	field := func(name string) *string {
		vals := form.Value["user["+name+"]"]
		if len(vals) == 0 {
			return nil
		}
		v := vals[0]
		return &v
	}

	p := userParams{
		Login:                field("login"),
		Email:                field("email"),
		Username:             field("username"),
		FirstName:            field("first_name"),
		LastName:             field("last_name"),
		Password:             field("password"),
		PasswordConfirmation: field("password_confirmation"),
		CurrentPassword:      field("current_password"),
		ResetPasswordToken:   field("reset_password_token"),
	}

	files := form.File[avatarFormField]
	if len(files) == 0 {
		return p, nil, nil
	}
	avatar, err := readAvatar(files[0])
	if err != nil {
		return userParams{}, nil, err
	}
	return p, avatar, nil
}

// readAvatar reads at most one byte past the size limit, enough for the
// size rule to reject oversized files without buffering them whole.
func readAvatar(fh *multipart.FileHeader) (*domain.AvatarUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open avatar upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar upload: %w", err)
	}
	return &domain.AvatarUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
