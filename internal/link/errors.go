package link

import (
	"errors"
	"fmt"
)

// FailureCode classifies why a stabilization pass could not reach locked.
type FailureCode string

// Failure codes.
const (
	CodeCableDisconnected FailureCode = "CABLE_DISCONNECTED"
	CodePortNotPlugged    FailureCode = "PORT_NOT_PLUGGED"
	CodeGenericFailure    FailureCode = "FSM_FAILURE"
)

// Error is a typed link failure. The FSM does not retry; one pass either
// locks or returns one of these, and the caller decides what to do next.
type Error struct {
	Port string
	Code FailureCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Port, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Port, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// failuref builds a typed link failure.
func failuref(port string, code FailureCode, format string, args ...any) *Error {
	return &Error{Port: port, Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the failure code from err, or "" if err is not a link
// failure.
func CodeOf(err error) FailureCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
