// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes and validates account passwords.
package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names accepted by the password.hasher setting.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const argon2Prefix = "$argon2"

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes new passwords with the configured algorithm and verifies
// hashes from either algorithm, detected by their encoded prefix. Existing
// hashes keep working after the configured algorithm changes.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2.Config
	dummy      []byte
}

// NewHasher creates a hasher for algorithm ("bcrypt" or "argon2id").
func NewHasher(algorithm string) (*Hasher, error) {
	return newHasher(algorithm, bcrypt.DefaultCost)
}

// NewTestHasher creates a bcrypt hasher at minimum cost.
func NewTestHasher() *Hasher {
	h, _ := newHasher(AlgorithmBcrypt, bcrypt.MinCost)
	return h
}

func newHasher(algorithm string, cost int) (*Hasher, error) {
	h := &Hasher{
		algorithm:  strings.ToLower(algorithm),
		bcryptCost: cost,
		argon:      argon2.DefaultConfig(),
	}
	switch h.algorithm {
	case "", AlgorithmBcrypt:
		h.algorithm = AlgorithmBcrypt
	case AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}

	dummy, err := h.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	h.dummy = []byte(dummy)
	return h, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns the encoded hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		encoded, err := h.argon.HashEncoded([]byte(password))
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		return string(encoded), nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password with hash. It returns ErrMismatch when they
// differ and another error when the hash cannot be read.
func (h *Hasher) Verify(hash, password string) error {
	if strings.HasPrefix(hash, argon2Prefix) {
		ok, err := argon2.VerifyEncoded([]byte(password), []byte(hash))
		if err != nil {
			return fmt.Errorf("failed to verify password: %w", err)
		}
		if !ok {
			return ErrMismatch
		}
		return nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

// VerifyDummy burns the same time as a real verification. Login calls it for
// unknown emails so response timing does not reveal which accounts exist.
func (h *Hasher) VerifyDummy(password string) {
	_ = h.Verify(string(h.dummy), password)
}
