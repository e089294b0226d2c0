package processing

import (
	"errors"
	"fmt"
)

var (
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrMalformedPayload   = errors.New("malformed entity payload")
	ErrUnknownHandler     = errors.New("unknown handler")
	ErrDuplicateHandler   = errors.New("handler already registered")
	ErrSideCallFailed     = errors.New("side call failed")
)

// Rejectf builds a precondition failure carrying a descriptive reason for the engine.
func Rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// ErrorCode is the stable failure code carried in response envelopes.
type ErrorCode string

const (
	CodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	CodeMalformedPayload   ErrorCode = "MALFORMED_PAYLOAD"
	CodeUnknownHandler     ErrorCode = "UNKNOWN_HANDLER"
	CodeSideCallFailed     ErrorCode = "SIDE_CALL_FAILED"
	CodeInternal           ErrorCode = "INTERNAL"
)

// CodeOf classifies an error returned by a handler.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownHandler):
		return CodeUnknownHandler
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrSideCallFailed):
		return CodeSideCallFailed
	case errors.Is(err, ErrPreconditionFailed):
		return CodePreconditionFailed
	default:
		return CodeInternal
	}
}
