// Package security holds the password hashing backends.
package security

import (
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// BcryptHasher hashes with bcrypt at the configured cost.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Argon2idHasher hashes with argon2id in PHC string format.
type Argon2idHasher struct {
	params *argon2id.Params
}

func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: argon2id.DefaultParams}
}

func (h *Argon2idHasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain, h.params)
	if err != nil {
		return "", fmt.Errorf("argon2id: %w", err)
	}
	return hash, nil
}

func (h *Argon2idHasher) Verify(hash, plain string) bool {
	match, _, err := argon2id.CheckHash(plain, hash)
	return err == nil && match
}

// Hasher hashes new passwords with one algorithm and verifies stored hashes
// with whichever algorithm produced them.
type Hasher struct {
	primary  string
	bcrypt   *BcryptHasher
	argon2id *Argon2idHasher
}

// NewHasher returns a Hasher whose new hashes use algorithm.
func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}
	return &Hasher{
		primary:  algorithm,
		bcrypt:   NewBcryptHasher(bcrypt.DefaultCost),
		argon2id: NewArgon2idHasher(),
	}, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	if h.primary == AlgorithmArgon2id {
		return h.argon2id.Hash(plain)
	}
	return h.bcrypt.Hash(plain)
}

func (h *Hasher) Verify(hash, plain string) bool {
	switch {
	case hash == "":
		return false
	case strings.HasPrefix(hash, "$argon2id$"):
		return h.argon2id.Verify(hash, plain)
	default:
		return h.bcrypt.Verify(hash, plain)
	}
}
