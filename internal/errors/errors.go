// Package errors defines the service error taxonomy and maps infrastructure
// errors into it.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindBackend Kind = iota
	KindAuthRequired
	KindValidation
	KindExternalService
	KindNotFound
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "authentication_required"
	case KindValidation:
		return "validation"
	case KindExternalService:
		return "external_service"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "backend"
	}
}

// Error is a classified service error. Msg is safe to show to end users.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) error { return &Error{Kind: k, Msg: msg} }

func AuthRequired(msg string) error    { return newErr(KindAuthRequired, msg) }
func Validation(msg string) error      { return newErr(KindValidation, msg) }
func NotFound(msg string) error        { return newErr(KindNotFound, msg) }
func Forbidden(msg string) error       { return newErr(KindForbidden, msg) }
func Conflict(msg string) error        { return newErr(KindConflict, msg) }
func ExternalService(msg string) error { return newErr(KindExternalService, msg) }

// Backend wraps a store, blob or provider failure.
func Backend(msg string, err error) error {
	return &Error{Kind: KindBackend, Msg: msg, Err: err}
}

// Wrap attaches a cause to a classified error without changing its kind.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Map converts repo/infra errors into taxonomy errors. Errors that are
// already classified pass through unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindConflict, "record already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(KindNotFound, "referenced record not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return Backend("request timed out", err)
	case errors.Is(err, context.Canceled):
		return Backend("request was canceled", err)
	default:
		return Backend("internal error", err)
	}
}

// KindOf returns the kind of err after mapping.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(Map(err), &e) {
		return e.Kind
	}
	return KindBackend
}

// Is reports whether err maps to kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the user facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(Map(err), &e) {
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
