package service

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrNotAuthenticated = errors.New("unauthorized")
	ErrForbidden        = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrPersistence      = errors.New("persistence failure")
)

// Error carries a kind, a message safe to show to the client and the
// underlying cause, if any.
type Error struct {
	kind error
	msg  string
	err  error
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, err: cause}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Message() string {
	return e.msg
}

func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	return target == e.kind
}

// FieldErrors returns per-field validation messages, if the cause has them.
func (e *Error) FieldErrors() map[string]string {
	var verrs validation.Errors
	if !errors.As(e.err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, err := range verrs {
		out[field] = err.Error()
	}
	return out
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return newError(ErrValidation, "validation failed", err)
}
