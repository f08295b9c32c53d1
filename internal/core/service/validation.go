package service

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72
	passwordSpecials  = "@#$%^&+="

	msgBlank         = "can't be blank"
	msgTaken         = "has already been taken"
	msgInvalid       = "is invalid"
	msgEmailFormat   = "format is invalid"
	msgTooShort      = "is too short (minimum is 6 characters)"
	msgTooLong       = "is too long (maximum is 72 characters)"
	msgPasswordRules = "must include 1 special char @#$%^&+=, 1 CAP char, 1 low char"
	msgConfirmation  = "doesn't match Password"
	msgAvatarSize    = "file size should be less than 1mb"
	msgAvatarType    = "has an invalid content type"
)

// userRules checks every field rule of a user record and collects all
// violations instead of stopping at the first one.
type userRules struct {
	users    ports.UserRepository
	validate *validator.Validate
}

func newUserRules(users ports.UserRepository) *userRules {
	return &userRules{users: users, validate: validator.New()}
}

// check validates u (already normalized) plus the plaintext password pair
// and an optional avatar. A nil confirmation skips the match rule. Store
// failures are returned as the second value.
func (r *userRules) check(ctx context.Context, u *domain.User, password string, confirmation *string, passwordRequired bool, avatar *domain.AvatarUpload) (*domain.ValidationError, error) {
	verr := domain.NewValidationError()

	if err := r.checkEmail(ctx, u, verr); err != nil {
		return nil, err
	}
	if err := r.checkUsername(ctx, u, verr); err != nil {
		return nil, err
	}
	if strings.TrimSpace(u.FirstName) == "" {
		verr.Add("first_name", msgBlank)
	}
	if strings.TrimSpace(u.LastName) == "" {
		verr.Add("last_name", msgBlank)
	}
	if passwordRequired || password != "" {
		verr.Merge(checkPassword(password, confirmation))
	}
	if avatar != nil {
		verr.Merge(checkAvatar(avatar))
	}

	return verr, nil
}

func (r *userRules) checkEmail(ctx context.Context, u *domain.User, verr *domain.ValidationError) error {
	if u.Email == "" {
		verr.Add("email", msgBlank)
	}
	if err := r.validate.Var(u.Email, "required,email"); err != nil {
		verr.Add("email", msgEmailFormat)
		return nil
	}
	taken, err := r.users.EmailTaken(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}
	if taken {
		verr.Add("email", msgTaken)
	}
	return nil
}

func (r *userRules) checkUsername(ctx context.Context, u *domain.User, verr *domain.ValidationError) error {
	if strings.TrimSpace(u.Username) == "" {
		verr.Add("username", msgBlank)
		return nil
	}
	taken, err := r.users.UsernameTaken(ctx, u.Username, u.ID)
	if err != nil {
		return err
	}
	if taken {
		verr.Add("username", msgTaken)
	}

	// A username may not collide with any account's email.
	if strings.Contains(u.Username, "@") {
		clash, err := r.users.EmailTaken(ctx, strings.ToLower(u.Username), "")
		if err != nil {
			return err
		}
		if clash {
			verr.Add("username", msgInvalid)
		}
	}
	return nil
}

// checkPassword applies the password rules. Length is counted in bytes,
// the unit bcrypt caps at maxPasswordLength.
func checkPassword(password string, confirmation *string) *domain.ValidationError {
	verr := domain.NewValidationError()
	switch {
	case password == "":
		verr.Add("password", msgBlank)
	case len(password) < minPasswordLength:
		verr.Add("password", msgTooShort)
	case len(password) > maxPasswordLength:
		verr.Add("password", msgTooLong)
	}
	if !passwordComplex(password) {
		verr.Add("password", msgPasswordRules)
	}
	if confirmation != nil && *confirmation != password {
		verr.Add("password_confirmation", msgConfirmation)
	}
	return verr
}

// passwordComplex requires a digit, a lower-case letter, an upper-case
// letter and one of passwordSpecials.
func passwordComplex(p string) bool {
	var digit, lower, upper, special bool
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return digit && lower && upper && special
}

func checkAvatar(a *domain.AvatarUpload) *domain.ValidationError {
	verr := domain.NewValidationError()
	if len(a.Data) >= domain.MaxAvatarBytes {
		verr.Add("avatar", msgAvatarSize)
	}
	if _, ok := domain.AllowedAvatarTypes[avatarContentType(a)]; !ok {
		verr.Add("avatar", msgAvatarType)
	}
	return verr
}

// avatarContentType prefers the declared type and falls back to sniffing.
func avatarContentType(a *domain.AvatarUpload) string {
	ct := a.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(a.Data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(ct)
}
