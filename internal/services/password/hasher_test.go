// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"strings"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasher(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		want      string
		wantErr   bool
	}{
		{"default", "", password.AlgorithmBcrypt, false},
		{"bcrypt", "bcrypt", password.AlgorithmBcrypt, false},
		{"argon2id", "ARGON2ID", password.AlgorithmArgon2id, false},
		{"unknown", "md5", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := password.NewHasher(tt.algorithm)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Algorithm())
		})
	}
}

func TestHasher_RoundTrip(t *testing.T) {
	for _, algorithm := range []string{password.AlgorithmBcrypt, password.AlgorithmArgon2id} {
		t.Run(algorithm, func(t *testing.T) {
			h, err := password.NewHasher(algorithm)
			require.NoError(t, err)

			hash, err := h.Hash("Str0ng!Pass1")
			require.NoError(t, err)
			assert.NotEqual(t, "Str0ng!Pass1", hash)

			assert.NoError(t, h.Verify(hash, "Str0ng!Pass1"))
			assert.ErrorIs(t, h.Verify(hash, "wrong"), password.ErrMismatch)
		})
	}
}

func TestHasher_VerifiesOtherAlgorithm(t *testing.T) {
	argon, err := password.NewHasher(password.AlgorithmArgon2id)
	require.NoError(t, err)
	hash, err := argon.Hash("Str0ng!Pass1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	bcryptHasher := password.NewTestHasher()

	assert.NoError(t, bcryptHasher.Verify(hash, "Str0ng!Pass1"))
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := password.NewTestHasher()

	err := h.Verify("not-a-hash", "Str0ng!Pass1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, password.ErrMismatch)
}
