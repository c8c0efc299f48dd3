package services

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failed domain operation
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindConflict          ErrorKind = "CONFLICT"
)

// DomainError is returned by every service operation that fails for a business reason.
// Code is a finer-grained machine identifier such as BOOKING_NOT_FOUND.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on kind, and on code when the target sets one
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind sentinels for errors.Is
var (
	ErrValidation        = &DomainError{Kind: KindValidation}
	ErrInvalidTransition = &DomainError{Kind: KindInvalidTransition}
	ErrInvalidState      = &DomainError{Kind: KindInvalidState}
	ErrUnauthorized      = &DomainError{Kind: KindUnauthorized}
	ErrNotFound          = &DomainError{Kind: KindNotFound}
	ErrConflict          = &DomainError{Kind: KindConflict}
)

func newDomainError(kind ErrorKind, code, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) *DomainError {
	return newDomainError(KindValidation, string(KindValidation), format, args...)
}

func invalidTransition(format string, args ...any) *DomainError {
	return newDomainError(KindInvalidTransition, string(KindInvalidTransition), format, args...)
}

func invalidState(format string, args ...any) *DomainError {
	return newDomainError(KindInvalidState, string(KindInvalidState), format, args...)
}

func unauthorized(format string, args ...any) *DomainError {
	return newDomainError(KindUnauthorized, "FORBIDDEN", format, args...)
}

func notFound(code, format string, args ...any) *DomainError {
	return newDomainError(KindNotFound, code, format, args...)
}

func conflict(format string, args ...any) *DomainError {
	return newDomainError(KindConflict, string(KindConflict), format, args...)
}

// AsDomainError returns the domain error in err's chain, if any
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
