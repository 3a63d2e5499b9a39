package errors

import (
	stderrors "errors"
	"fmt"
)

type Error interface {
	error

	Code() int
	Kind() Kind
	Message() string
	Cause() error
}

// Default code defines the code that will be used by default when
// none is given. It is set to 500, Internal Server Error
var DefaultCode = 500

type myError struct {
	code  int
	kind  Kind
	msg   string
	cause error
}

func (err *myError) Error() string {
	if err.cause == nil {
		return err.msg
	}

	return fmt.Sprintf("%s: %v", err.msg, err.cause)
}

func (err *myError) Code() int {
	return err.code
}

func (err *myError) Kind() Kind {
	return err.kind
}

func (err *myError) Message() string {
	return err.msg
}

func (err *myError) Cause() error {
	return err.cause
}

func (err *myError) Unwrap() error {
	return err.cause
}

type ErrorEnricher func(error) error

func WithCode(code int) ErrorEnricher {
	return func(err error) error {
		if err == nil {
			return nil
		}

		if myErr, ok := err.(*myError); ok {
			myErr.code = code
			return myErr
		}

		return &myError{
			msg:  err.Error(),
			code: code,
		}
	}
}

// WithKind sets the kind of err, keeping its code, message and cause.
func WithKind(kind Kind) ErrorEnricher {
	return func(err error) error {
		if err == nil {
			return nil
		}

		if myErr, ok := err.(*myError); ok {
			myErr.kind = kind
			return myErr
		}

		return &myError{
			msg:  err.Error(),
			code: DefaultCode,
			kind: kind,
		}
	}
}

// WithCause attaches cause to the error. When the error is not built by this
// package yet, the code and kind of the cause are forwarded.
func WithCause(cause error) ErrorEnricher {
	return func(err error) error {
		if err == nil {
			return nil
		}

		if myErr, ok := err.(*myError); ok {
			myErr.cause = cause
			return myErr
		}

		wrapped := &myError{
			msg:   err.Error(),
			code:  DefaultCode,
			cause: cause,
		}
		var c Error
		if stderrors.As(cause, &c) {
			wrapped.code = c.Code()
			wrapped.kind = c.Kind()
		}
		return wrapped
	}
}

func New(msg string, fs ...ErrorEnricher) error {
	var err error
	err = &myError{
		msg:  msg,
		code: DefaultCode,
	}

	for _, f := range fs {
		err = f(err)
	}

	return err
}

// KindOf returns the first kind set along the chain of err, Unknown if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(Error); ok && e.Kind() != Unknown {
			return e.Kind()
		}
		err = stderrors.Unwrap(err)
	}
	return Unknown
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	if e, ok := err.(Error); ok {
		return e.Message()
	}
	return err.Error()
}
