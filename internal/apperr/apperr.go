// Package apperr defines semantic error kinds shared by the storage and HTTP
// layers. A kind is a sentinel; Error wraps a kind with a message and an
// optional cause and matches both through errors.Is and errors.As.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/gorm"
)

type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

func NewKind(name string) Kind { return kind{s: name} }

var (
	ErrNotFound     = NewKind("NOT_FOUND")
	ErrBadRequest   = NewKind("BAD_REQUEST")
	ErrUnauthorized = NewKind("UNAUTHORIZED")
	ErrForbidden    = NewKind("FORBIDDEN")
	ErrConflict     = NewKind("CONFLICT")
	ErrTooLarge     = NewKind("TOO_LARGE")
	ErrInternal     = NewKind("INTERNAL")
)

type Error struct {
	kind Kind
	err  error
	msg  string
}

// With builds an error of kind k with a formatted message.
func With(k Kind, format string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of kind k around cause.
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: k, err: cause, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	return e.err != nil && errors.Is(e.err, target)
}

func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	return e.err != nil && errors.As(e.err, target)
}

func (e *Error) Kind() Kind { return e.kind }

// Message is the client-facing text. Causes are never exposed.
func (e *Error) Message() string {
	if e.msg != "" {
		return e.msg
	}
	if e.kind != nil {
		return e.kind.Error()
	}
	return ""
}

// FromDB maps gorm errors onto semantic kinds. what names the entity for the
// message, e.g. "news".
func FromDB(err error, what string) error {
	var (
		e  *Error
		fe FieldErrors
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e), errors.As(err, &fe):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(ErrNotFound, err, "%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(ErrConflict, err, "%s already exists", what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(ErrBadRequest, err, "%s references a missing record", what)
	default:
		return Wrap(ErrInternal, err, "database error")
	}
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the message safe to show a client.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if Status(err) == http.StatusInternalServerError && e.msg == "" {
			return "internal server error"
		}
		return e.Message()
	}
	return "internal server error"
}

// FieldErrors maps request fields to validation messages. It is a
// BadRequest and renders as {"errors": {...}}.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (f FieldErrors) Is(target error) bool {
	return target == ErrBadRequest
}

// Field builds a FieldErrors holding a single message.
func Field(field, msg string) FieldErrors {
	return FieldErrors{field: {msg}}
}
