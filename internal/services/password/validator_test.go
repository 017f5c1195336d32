// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"strings"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/services/password"
	"github.com/stretchr/testify/assert"
)

func codes(result password.ValidationResult) []string {
	out := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		out[i] = e.Code
	}
	return out
}

func TestValidator_Validate(t *testing.T) {
	v := password.DefaultValidator()

	tests := []struct {
		name     string
		password string
		attrs    []string
		valid    bool
		code     string
	}{
		{"strong", "Str0ng!Pass1", []string{"alice@example.com", "Alice"}, true, ""},
		{"too short", "S0!a", nil, false, "min_length"},
		{"too long", strings.Repeat("Aa1!", 19), nil, false, "max_length"},
		{"no uppercase", "str0ng!pass1", nil, false, "no_uppercase"},
		{"no lowercase", "STR0NG!PASS1", nil, false, "no_lowercase"},
		{"no digit", "Strong!Passx", nil, false, "no_digit"},
		{"no special", "Str0ngPass12", nil, false, "no_special"},
		{"numeric", "12345678", nil, false, "entirely_numeric"},
		{"common", "Password123!", nil, false, "common_password"},
		{"contains email local part", "Alice!Secure9", []string{"alice@example.com"}, false, "too_similar"},
		{"contains name word", "Liddell#2024x", []string{"Alice Liddell"}, false, "too_similar"},
		{"short attributes ignored", "Str0ng!Pass1", []string{"St"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.password, tt.attrs...)

			assert.Equal(t, tt.valid, result.Valid, result.Messages())
			if tt.code != "" {
				assert.Contains(t, codes(result), tt.code)
			}
		})
	}
}

func TestValidator_Check(t *testing.T) {
	v := password.DefaultValidator()

	assert.NoError(t, v.Check("Str0ng!Pass1"))

	err := v.Check("weak")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestValidator_HelpTexts(t *testing.T) {
	v := password.DefaultValidator()

	texts := v.HelpTexts()

	assert.Contains(t, texts, "At least 8 characters")
	assert.Contains(t, texts, "At least one special character")
}
