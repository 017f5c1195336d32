// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperr defines the error taxonomy shared by services and the HTTP
// boundary. Services return *Error values; only the server's error handler
// turns them into responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error and determines its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Stable machine-readable codes. Clients branch on these.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeMissingToken           = "MISSING_TOKEN"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeWrongTokenType         = "WRONG_TOKEN_TYPE"
	CodeAccountDeactivated     = "ACCOUNT_DEACTIVATED"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSIONS"
	CodeLoginFailed            = "LOGIN_FAILED"
	CodeEmailExists            = "EMAIL_EXISTS"
	CodeAccountAlreadyLinked   = "ACCOUNT_ALREADY_LINKED"
	CodeFirebaseNotLinked      = "FIREBASE_NOT_LINKED"
	CodeProviderMismatch       = "PROVIDER_MISMATCH"
	CodeFirebaseToken          = "FIREBASE_TOKEN_ERROR"
	CodeEmailNotVerified       = "EMAIL_NOT_VERIFIED"
	CodePasswordRequired       = "PASSWORD_REQUIRED"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// Error is an application error with a stable code and a client-safe message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, apperr.InvalidToken())
// works regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// Internal wraps an unexpected failure. The cause is logged, never sent.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "An internal error occurred", Err: err}
}

// Validation reports invalid input.
func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// FieldErrors reports invalid input for named fields.
func FieldErrors(fields map[string]string) *Error {
	parts := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		parts = append(parts, name+": "+fields[name])
	}
	return Validation(strings.Join(parts, "; "))
}

func MissingToken() *Error {
	return New(KindAuthentication, CodeMissingToken, "Authorization token is required")
}

func InvalidToken() *Error {
	return New(KindAuthentication, CodeInvalidToken, "Token is invalid")
}

func TokenExpired() *Error {
	return New(KindAuthentication, CodeTokenExpired, "Token has expired")
}

func WrongTokenType() *Error {
	return New(KindAuthentication, CodeWrongTokenType, "Token type is not accepted here")
}

func AccountDeactivated() *Error {
	return New(KindAuthentication, CodeAccountDeactivated, "Account is deactivated")
}

func LoginFailed() *Error {
	return New(KindAuthentication, CodeLoginFailed, "Invalid email or password")
}

// InsufficientPermissions names the roles that would have been admitted.
func InsufficientPermissions(allowed []string) *Error {
	return New(KindAuthorization, CodeInsufficientPermission,
		"Requires one of the roles: "+strings.Join(allowed, ", "))
}

func EmailExists() *Error {
	return New(KindConflict, CodeEmailExists, "An account with this email already exists")
}

func AccountAlreadyLinked() *Error {
	return New(KindConflict, CodeAccountAlreadyLinked, "This external account is already linked to another account")
}

func FirebaseNotLinked() *Error {
	return New(KindValidation, CodeFirebaseNotLinked, "No external account is linked")
}

func ProviderMismatch() *Error {
	return New(KindValidation, CodeProviderMismatch, "Declared provider does not match the token")
}

func FirebaseToken(err error) *Error {
	return &Error{Kind: KindAuthentication, Code: CodeFirebaseToken, Message: "External identity token could not be verified", Err: err}
}

func EmailNotVerified() *Error {
	return New(KindAuthorization, CodeEmailNotVerified, "The provider has not verified this email address")
}

func PasswordRequired() *Error {
	return New(KindValidation, CodePasswordRequired, "Set a password before unlinking the external account")
}

func RateLimitExceeded() *Error {
	return New(KindRateLimit, CodeRateLimitExceeded, "Too many requests, please try again later")
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}
