package coreerr

import (
	"errors"
	"net/http"
)

// Error is the only error type returned to callers of the embedding and
// vector store components.
type Error struct {
	Kind    Kind
	Message string

	// Err is the underlying cause (transport error, decode error), if any.
	Err error
}

// New returns an Error of the given kind carrying the kind's default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Message: kind.Message()}
}

// WithMessage returns an Error of the given kind with a custom message.
func WithMessage(kind Kind, msg string) *Error {
	if msg == "" {
		msg = kind.Message()
	}
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an Error of the given kind that keeps err as its cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Message
	}
	return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, coreerr.New(coreerr.StoreTimeout)) matches on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status bound to the error's kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Unspecified, false
}

// StatusOf returns the HTTP status for err, or 500 for errors that did not
// originate from this package.
func StatusOf(err error) int {
	if kind, ok := KindOf(err); ok {
		return kind.Status()
	}
	return http.StatusInternalServerError
}
