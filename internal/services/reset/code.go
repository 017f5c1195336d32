// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of digits in a reset code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random 6-digit numeric code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// HashCode computes the SHA256 hash stored in place of the code.
func HashCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}

// NormalizeCode strips whitespace and dashes users paste along with a code.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}

// ValidFormat reports whether code has the shape of a reset code.
func ValidFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
