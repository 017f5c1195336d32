// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the rows of the identity store and their enums.
package models

import "strings"

// Role is the fixed set of authorization roles.
type Role string

const (
	RoleCandidate Role = "CANDIDATE"
	RoleRecruiter Role = "RECRUITER"
	RoleHR        Role = "HR"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists every valid role in display order.
func Roles() []Role {
	return []Role{RoleCandidate, RoleRecruiter, RoleHR, RoleAdmin}
}

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes s and returns the matching role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// AuthProvider identifies where an identity's credentials come from.
type AuthProvider string

const (
	ProviderLocal     AuthProvider = "LOCAL"
	ProviderGoogle    AuthProvider = "GOOGLE"
	ProviderFacebook  AuthProvider = "FACEBOOK"
	ProviderGitHub    AuthProvider = "GITHUB"
	ProviderApple     AuthProvider = "APPLE"
	ProviderMicrosoft AuthProvider = "MICROSOFT"
	ProviderTwitter   AuthProvider = "TWITTER"
)

// ParseAuthProvider accepts both enum names ("GOOGLE", "google") and
// provider sign-in ids as issued by Firebase ("google.com", "password").
func ParseAuthProvider(s string) (AuthProvider, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, ".com")
	switch v {
	case "local", "password", "email":
		return ProviderLocal, true
	case "google":
		return ProviderGoogle, true
	case "facebook":
		return ProviderFacebook, true
	case "github":
		return ProviderGitHub, true
	case "apple":
		return ProviderApple, true
	case "microsoft":
		return ProviderMicrosoft, true
	case "twitter":
		return ProviderTwitter, true
	}
	return "", false
}

// ResetPurpose scopes a one-time code.
type ResetPurpose string

const (
	PurposePasswordReset ResetPurpose = "PASSWORD_RESET"
	PurposeEmailVerify   ResetPurpose = "EMAIL_VERIFICATION"
)
