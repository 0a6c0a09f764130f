// Package dErrors defines coded domain errors shared across services and
// transports. Services return these for expected business outcomes; the HTTP
// layer maps codes to status codes without inspecting error strings.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error. Codes are stable API surface: they
// appear verbatim in JSON error envelopes.
type Code string

const (
	// CodeBadRequest covers malformed request shapes (bad JSON, missing fields).
	CodeBadRequest Code = "bad_request"

	// CodeValidation covers caller-fixable input that parsed but violates a
	// domain rule: household size out of range, unknown aid category,
	// non-positive quantity, malformed identifier.
	CodeValidation Code = "validation_failed"

	// CodeDuplicateIdentity signals the verified identity already holds a
	// household identifier. The existing identifier travels in the detail.
	CodeDuplicateIdentity Code = "duplicate_identity"

	// CodeCollisionExhausted signals identifier derivation ran out of retry
	// attempts. Retryable from the caller's side with a fresh registration.
	CodeCollisionExhausted Code = "collision_exhausted"

	// CodeNotEligible signals the cooldown window for an aid category has not
	// elapsed. The remaining duration travels in the detail.
	CodeNotEligible Code = "not_eligible"

	// CodeNotFound signals an unknown or inactive identifier or lookup key.
	CodeNotFound Code = "not_found"

	// CodeConflict signals a state conflict (e.g. already deactivated).
	CodeConflict Code = "conflict"

	// CodeUnauthorized signals a missing or invalid agent credential.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal covers infrastructure failures. Descriptions are never
	// exposed to callers for this code.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and an operator-facing message.
// Detail optionally carries structured data the transport layer may surface
// (existing identifier on duplicates, remaining cooldown on ineligibility).
type Error struct {
	Code    Code
	Message string
	Detail  map[string]string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/errors.As for logging; only code and message
// cross the transport boundary.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// WithDetail returns the error with a detail entry added. The receiver is
// mutated and returned for chaining at construction sites.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]string)
	}
	e.Detail[key] = value
	return e
}

// HasCode reports whether err is (or wraps) a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors so unexpected faults never leak details.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateIdentity, CodeConflict, CodeNotEligible:
		return http.StatusConflict
	case CodeCollisionExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
