package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned as business outcomes. Every terminal state of the
// login state machine maps to exactly one of these.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenMalformed     = "TOKEN_MALFORMED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

// AuthError is an expected business outcome carrying a taxonomy code and the
// HTTP status it maps to. It is returned directly to callers without retry,
// except STORE_UNAVAILABLE which the orchestrator retries once.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewAuthError builds a taxonomy error.
func NewAuthError(code, desc string, status int) *AuthError {
	return &AuthError{Code: code, Description: desc, Status: status}
}

// ErrRateLimited includes a Retry-After hint in seconds via RetryAfter.
type RateLimitError struct {
	AuthError
	RetryAfter int
}

// NewRateLimitError builds a RATE_LIMITED outcome with a retry hint.
func NewRateLimitError(retryAfter int) *RateLimitError {
	return &RateLimitError{
		AuthError:  AuthError{Code: CodeRateLimited, Description: "Too many requests. Please slow down.", Status: http.StatusTooManyRequests},
		RetryAfter: retryAfter,
	}
}

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update lost the race.
	ErrConflict = errors.New("version conflict")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Taxonomy constructors used across the service layer.

func ErrAccountLocked() *AuthError {
	return NewAuthError(CodeAccountLocked, "Account locked due to multiple failed attempts.", http.StatusForbidden)
}

func ErrInvalidCredentials() *AuthError {
	return NewAuthError(CodeInvalidCredentials, "Incorrect credentials.", http.StatusUnauthorized)
}

func ErrEmailNotVerified() *AuthError {
	return NewAuthError(CodeEmailNotVerified, "Email address not verified.", http.StatusForbidden)
}

func ErrAccountDisabled() *AuthError {
	return NewAuthError(CodeAccountDisabled, "Account is disabled.", http.StatusForbidden)
}

func ErrTokenExpired() *AuthError {
	return NewAuthError(CodeTokenExpired, "Token has expired.", http.StatusUnauthorized)
}

func ErrTokenMalformed() *AuthError {
	return NewAuthError(CodeTokenMalformed, "Token is malformed or has an invalid signature.", http.StatusUnauthorized)
}

func ErrTokenRevoked() *AuthError {
	return NewAuthError(CodeTokenRevoked, "Token has been revoked.", http.StatusUnauthorized)
}

func ErrStoreUnavailable() *AuthError {
	return NewAuthError(CodeStoreUnavailable, "Service temporarily unavailable.", http.StatusServiceUnavailable)
}

func ErrInternal() *AuthError {
	return NewAuthError(CodeInternal, "Internal server error.", http.StatusInternalServerError)
}
