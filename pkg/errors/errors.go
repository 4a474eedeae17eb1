// Package errors provides shared sentinel errors used throughout arc-skill.
package errors

import stderrors "errors"

var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = stderrors.New("not found")

	// ErrClosed indicates the resource has been closed.
	ErrClosed = stderrors.New("closed")

	// ErrInvalidInput indicates the input is invalid.
	ErrInvalidInput = stderrors.New("invalid input")

	// ErrNoHandler indicates no request handler accepted the request.
	ErrNoHandler = stderrors.New("no request handler found")

	// ErrUnhandled indicates no error handler accepted a dispatch failure.
	ErrUnhandled = stderrors.New("unhandled dispatch error")

	// ErrSkillIDMismatch indicates the envelope targets a different skill.
	ErrSkillIDMismatch = stderrors.New("skill id mismatch")

	// ErrInvalidOperand indicates a slot value is not a usable number.
	ErrInvalidOperand = stderrors.New("invalid operand")

	// ErrHandlerPanic indicates a handler panicked while handling a request.
	ErrHandlerPanic = stderrors.New("handler panic")

	// ErrInterceptor indicates a request interceptor rejected the call.
	ErrInterceptor = stderrors.New("request interceptor")
)
