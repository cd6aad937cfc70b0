package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict indicates the same operation is already in flight.
	ErrConflict = errors.New("conflict")
	// ErrVerification indicates a payment signature did not match.
	ErrVerification = errors.New("payment verification failed")
	// ErrInvalidTransition indicates an order status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotConfigured indicates an integration is missing credentials.
	ErrNotConfigured = errors.New("integration not configured")
	// ErrInvalidToken indicates an identity token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden indicates a valid identity without the required access.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// UpstreamError wraps a failed call to a third-party API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
