package service

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnknownUser
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnknownUser:
		return "unknown user"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a failure of this kind is reported with.
// Unknown users are reported as 404, the same as a missing resource.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnknownUser, KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to the caller.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func UnknownUser(err error) error {
	return &Error{Kind: KindUnknownUser, Message: "unknown user", Err: err}
}

func Unauthenticated(err error) error {
	return &Error{Kind: KindUnauthenticated, Message: "unauthorized", Err: err}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string, err error) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func StorageError(err error) error {
	return &Error{Kind: KindStorage, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, KindUnknown if it is not a service error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
