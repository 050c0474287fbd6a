package regionshot

import (
	"errors"
	"fmt"
)

const (
	// ErrSelection error code, the selection has no area
	ErrSelection = "invalid selection"
	// ErrCaptureTransport error code, the host failed to capture the visible area
	ErrCaptureTransport = "capture failed"
	// ErrCompositionGap error code, some rows are covered by no capture
	ErrCompositionGap = "composition gap"
	// ErrDecode error code, a capture can't be decoded
	ErrDecode = "decode failed"
	// ErrSessionActive error code, another session is running
	ErrSessionActive = "session active"
	// ErrCanceled error code, the session is canceled by the user or the context
	ErrCanceled = "canceled"
)

// Error ...
type Error struct {
	Err     error
	Code    string
	Details interface{}
}

// Error ...
func (e *Error) Error() string {
	msg := "[regionshot] " + e.Code
	if e.Details != nil {
		msg += fmt.Sprintf(": %v", e.Details)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Err == nil && t.Details == nil
}

// IsError type matches
func IsError(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

func newErr(code string, err error, details interface{}) *Error {
	return &Error{Err: err, Code: code, Details: details}
}
