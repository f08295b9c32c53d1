package domain

import "time"

// AllowlistedToken is one row per issued, still-valid bearer token. A jti
// with no row is revoked.
type AllowlistedToken struct {
	ID        string
	Jti       string
	Audience  string
	ExpiresAt time.Time
	UserID    string
	CreatedAt time.Time
}

// Claims is the verified content of a bearer token.
type Claims struct {
	Subject   string
	Jti       string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IssuedToken is the result of signing a fresh token for a user.
type IssuedToken struct {
	Token     string
	Jti       string
	Audience  string
	ExpiresAt time.Time
}

// Session is the outcome of a successful authentication.
type Session struct {
	UserID    string
	Jti       string
	ExpiresAt time.Time
}
