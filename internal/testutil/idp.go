// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"errors"
	"sync"

	"codeberg.org/oliverandrich/talentgate-identity/internal/services/idp"
)

// ErrUnknownIDToken is returned by StaticVerifier for unregistered tokens.
var ErrUnknownIDToken = errors.New("unknown id token")

// StaticVerifier is an identity provider that accepts a fixed set of tokens.
type StaticVerifier struct {
	mu     sync.Mutex
	tokens map[string]idp.Assertion
}

// NewStaticVerifier creates an empty StaticVerifier.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{tokens: make(map[string]idp.Assertion)}
}

// Add registers token as asserting a.
func (v *StaticVerifier) Add(token string, a idp.Assertion) *StaticVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = a
	return v
}

// Verify implements idp.Verifier.
func (v *StaticVerifier) Verify(_ context.Context, token string) (*idp.Assertion, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.tokens[token]
	if !ok {
		return nil, ErrUnknownIDToken
	}
	return &a, nil
}
