// Package domainerrors defines coded domain errors shared across modules.
//
// Services return these so transports can translate them into HTTP statuses
// without string matching. For infrastructure facts (not found, expired) use
// pkg/sentinel and translate at the service boundary.
package domainerrors

import "net/http"

// Code identifies a class of domain failure.
type Code string

const (
	CodeInvalidInput    Code = "invalid_input"
	CodeNotFound        Code = "not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeInternal        Code = "internal_error"
	CodeRateLimited     Code = "rate_limited"
	CodeSessionInvalid  Code = "session_invalid"
	CodeUnsafeInput     Code = "unsafe_input"
	CodePolicyViolation Code = "policy_violation"
	CodeExecutorFailure Code = "executor_failure"
)

// DomainError carries a machine-readable code alongside a human message.
type DomainError struct {
	Code    Code
	Message string
}

func (e DomainError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New constructs a DomainError with the given code and message.
func New(code Code, message string) DomainError {
	return DomainError{Code: code, Message: message}
}

// CodeOf extracts the domain code from an error, defaulting to CodeInternal
// for errors that did not originate in domain logic.
func CodeOf(err error) Code {
	if de, ok := err.(DomainError); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to its transport status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeSessionInvalid, CodeUnsafeInput, CodePolicyViolation:
		return http.StatusForbidden
	case CodeExecutorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
