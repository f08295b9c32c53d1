package domain

import (
	"errors"
	"sort"
	"strings"
)

// Authentication errors.
var (
	ErrNoToken         = errors.New("no token")
	ErrMalformedToken  = errors.New("malformed token")
	ErrExpiredToken    = errors.New("token expired")
	ErrMissingJti      = errors.New("missing jti")
	ErrRevokedToken    = errors.New("revoked token")
	ErrAccountInactive = errors.New("account deactivated")
)

// Account errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCurrentPassword    = errors.New("current password missing or incorrect")
	ErrAvatarNotFound     = errors.New("avatar not attached")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
)

// Store errors.
var (
	ErrDuplicateToken = errors.New("duplicate jti")
	ErrNotFound       = errors.New("not found")
)

// ValidationError aggregates every violated field rule.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends msg to field's message list.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Merge copies every message of other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		e.Fields[field] = append(e.Fields[field], msgs...)
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it carries messages and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// FullMessages renders "Field message" strings in stable field order.
func (e *ValidationError) FullMessages() []string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		label := Capitalize(strings.ReplaceAll(f, "_", " "))
		for _, msg := range e.Fields[f] {
			out = append(out, label+" "+msg)
		}
	}
	return out
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.FullMessages(), ", ")
}

// InternalError carries operator context in Err and a client-safe Message.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// TokenErrorMessage returns the client-facing text for an authentication
// error, or "" when err is not one.
func TokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "Nil JSON web token"
	case errors.Is(err, ErrExpiredToken):
		return "Signature has expired"
	case errors.Is(err, ErrMissingJti):
		return "Missing jti"
	case errors.Is(err, ErrRevokedToken):
		return "revoked token"
	case errors.Is(err, ErrMalformedToken):
		return "Invalid token"
	case errors.Is(err, ErrAccountInactive):
		return "Your account has been deactivated."
	}
	return ""
}
