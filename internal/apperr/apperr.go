// Package apperr defines the error kinds surfaced to callers of the
// reconciliation services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindEncoding        Kind = "encoding"
	KindDuplicatePeriod Kind = "duplicate_period"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error is a categorized error. Detail carries diagnostics that are only shown
// outside production.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

func Encoding(format string, args ...any) *Error { return newf(KindEncoding, format, args...) }

func DuplicatePeriod(period string) *Error {
	return newf(KindDuplicatePeriod, "period %s already has gl entries", period)
}

func NotFound(entity, id string) *Error { return newf(KindNotFound, "%s %s not found", entity, id) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// Internal wraps a persistence or unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Detail: fmt.Sprintf("%+v", err), Err: err}
}

// WithDetail returns a copy of e carrying diagnostic detail.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// KindOf reports the kind of err. Uncategorized errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is categorized as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status class callers expect.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindEncoding:
		return http.StatusUnprocessableEntity
	case KindDuplicatePeriod, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Body is the caller-facing rendering of an error.
type Body struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Public renders err for a caller. Production responses never carry detail,
// and internal errors only expose their message.
func Public(err error, production bool) Body {
	var e *Error
	if !errors.As(err, &e) {
		b := Body{Kind: KindInternal, Message: "internal error"}
		if !production {
			b.Detail = err.Error()
		}
		return b
	}
	b := Body{Kind: e.Kind, Message: e.Message}
	if !production {
		b.Detail = e.Detail
		if b.Detail == "" && e.Err != nil {
			b.Detail = e.Err.Error()
		}
	}
	return b
}
