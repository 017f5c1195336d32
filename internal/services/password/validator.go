// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords map[string]struct{}

func init() {
	commonPasswords = make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" {
			commonPasswords[password] = struct{}{}
		}
	}
}

// maxBytes is the longest input bcrypt accepts.
const maxBytes = 72

// Validator validates passwords against various criteria
type Validator struct {
	MinLength            int
	RequireUppercase     bool
	RequireLowercase     bool
	RequireDigit         bool
	RequireSpecial       bool
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultValidator returns a validator requiring mixed character classes.
func DefaultValidator() *Validator {
	return &Validator{
		MinLength:            8,
		RequireUppercase:     true,
		RequireLowercase:     true,
		RequireDigit:         true,
		RequireSpecial:       true,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// ValidationError represents a single password validation error
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Messages returns all error messages
func (r ValidationResult) Messages() []string {
	messages := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Check validates password and returns a VALIDATION_ERROR listing every
// failed rule, or nil.
func (v *Validator) Check(password string, userAttributes ...string) error {
	result := v.Validate(password, userAttributes...)
	if result.Valid {
		return nil
	}
	return apperr.Validation(strings.Join(result.Messages(), " "))
}

// Validate checks a password against all configured validators
func (v *Validator) Validate(password string, userAttributes ...string) ValidationResult {
	var errors []ValidationError

	if utf8.RuneCountInString(password) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}
	if len(password) > maxBytes {
		errors = append(errors, ValidationError{
			Code:    "max_length",
			Message: fmt.Sprintf("Password must be at most %d bytes long.", maxBytes),
		})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if v.RequireUppercase && !hasUpper {
		errors = append(errors, ValidationError{
			Code:    "no_uppercase",
			Message: "Password must contain at least one uppercase letter.",
		})
	}

	if v.RequireLowercase && !hasLower {
		errors = append(errors, ValidationError{
			Code:    "no_lowercase",
			Message: "Password must contain at least one lowercase letter.",
		})
	}

	if v.RequireDigit && !hasDigit {
		errors = append(errors, ValidationError{
			Code:    "no_digit",
			Message: "Password must contain at least one digit.",
		})
	}

	if v.RequireSpecial && !hasSpecial {
		errors = append(errors, ValidationError{
			Code:    "no_special",
			Message: "Password must contain at least one special character.",
		})
	}

	if isEntirelyNumeric(password) {
		errors = append(errors, ValidationError{
			Code:    "entirely_numeric",
			Message: "Password cannot be entirely numeric.",
		})
	}

	if v.CheckCommonPasswords && isCommonPassword(password) {
		errors = append(errors, ValidationError{
			Code:    "common_password",
			Message: "This password is too common. Please choose a more secure password.",
		})
	}

	if v.CheckUserSimilarity && len(userAttributes) > 0 {
		if isSimilarToUserAttributes(password, userAttributes) {
			errors = append(errors, ValidationError{
				Code:    "too_similar",
				Message: "Password is too similar to your personal information.",
			})
		}
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// HelpTexts returns help texts for password requirements
func (v *Validator) HelpTexts() []string {
	var texts []string

	texts = append(texts, fmt.Sprintf("At least %d characters", v.MinLength))

	if v.RequireUppercase {
		texts = append(texts, "At least one uppercase letter")
	}
	if v.RequireLowercase {
		texts = append(texts, "At least one lowercase letter")
	}
	if v.RequireDigit {
		texts = append(texts, "At least one digit")
	}
	if v.RequireSpecial {
		texts = append(texts, "At least one special character")
	}

	texts = append(texts, "Cannot be entirely numeric")

	if v.CheckCommonPasswords {
		texts = append(texts, "Not a commonly used password")
	}
	if v.CheckUserSimilarity {
		texts = append(texts, "Not too similar to your personal information")
	}

	return texts
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

// minAttributeLength keeps initials and short name parts from matching
// every password that happens to contain them.
const minAttributeLength = 3

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range expandAttributes(attributes) {
		if len(attr) < minAttributeLength {
			continue
		}

		if strings.Contains(passwordLower, attr) {
			return true
		}

		if strings.Contains(attr, passwordLower) {
			return true
		}

		if similarity(passwordLower, attr) > 0.7 {
			return true
		}
	}

	return false
}

// expandAttributes lower-cases attributes and adds the local part of emails
// and the individual words of names.
func expandAttributes(attributes []string) []string {
	var out []string
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		out = append(out, attr)
		if local, _, ok := strings.Cut(attr, "@"); ok {
			out = append(out, local)
			continue
		}
		if words := strings.Fields(attr); len(words) > 1 {
			out = append(out, words...)
		}
	}
	return out
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	maxLen := max(len(a), len(b))

	return float64(lcs) / float64(maxLen)
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
