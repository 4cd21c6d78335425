// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
package apperr

import "errors"

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Error is a classified failure carrying a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func Validation(msg string) *Error { return newErr(KindValidation, msg) }
func Auth(msg string) *Error       { return newErr(KindAuth, msg) }
func Forbidden(msg string) *Error  { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error   { return newErr(KindNotFound, msg) }
func Conflict(msg string) *Error   { return newErr(KindConflict, msg) }
func RateLimit(msg string) *Error  { return newErr(KindRateLimit, msg) }

// Wrap marks err as an internal failure. A nil err yields nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message of err, or fallback for unclassified errors.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return fallback
}
