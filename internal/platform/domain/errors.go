package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for transport-layer mapping.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindForbidden        ErrorKind = "forbidden"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindConfiguration    ErrorKind = "configuration"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindIncompatiblePets ErrorKind = "incompatible_pets"
	KindCouponInvalid    ErrorKind = "coupon_invalid"
	KindInvalidState     ErrorKind = "invalid_state"
)

// Error is the common error type for all domain failures.
type Error struct {
	Kind    ErrorKind
	Message string
	// Reason carries a machine-readable sub-reason (coupon rejections,
	// configuration consistency failures).
	Reason string
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewValidationError creates an error for a malformed request.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewConflictError creates an error for a concurrent-modification conflict.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewForbiddenError creates an error for an authorization failure.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewUnauthorizedError creates an error for a missing or invalid identity.
func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NewConfigurationError creates an error for a rule set that fails an
// internal consistency check. Quote computation must abort on these rather
// than fall back to a partially-computed price.
func NewConfigurationError(reason, message string) *Error {
	return &Error{Kind: KindConfiguration, Reason: reason, Message: message}
}

// NewCapacityExceededError creates an error for an availability race lost at
// confirmation time.
func NewCapacityExceededError(message string) *Error {
	return &Error{Kind: KindCapacityExceeded, Message: message}
}

// NewIncompatiblePetsError creates an error for a pet group that may not
// share a suite.
func NewIncompatiblePetsError(message string) *Error {
	return &Error{Kind: KindIncompatiblePets, Message: message}
}

// NewCouponInvalidError creates an error for a coupon that failed validation,
// with a machine-readable rejection reason.
func NewCouponInvalidError(reason, message string) *Error {
	return &Error{Kind: KindCouponInvalid, Reason: reason, Message: message}
}

// NewInvalidStateError creates an error for a disallowed status transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// KindOf returns the ErrorKind of err, or an empty kind for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
