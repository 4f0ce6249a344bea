package llm

import (
	"errors"
)

// Class identifies what went wrong with a summarization call. Transport and
// server classes are expected to resolve on retry; client and decode classes
// are not.
type Class int

const (
	// ClassTransport is a connection or send-level failure.
	ClassTransport Class = iota
	// ClassServer is a 5xx or rate-limit status from the backend.
	ClassServer
	// ClassClient is a 4xx status; retrying cannot help.
	ClassClient
	// ClassDecode is a received-but-unparseable body.
	ClassDecode
	// ClassTimeout is the caller's outer deadline expiring.
	ClassTimeout
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassServer:
		return "server"
	case ClassClient:
		return "client"
	case ClassDecode:
		return "decode"
	case ClassTimeout:
		return "timeout"
	}
	return "unknown"
}

// CallError wraps a summarization failure with its class.
type CallError struct {
	Class Class
	err   error
}

func (e *CallError) Error() string {
	return e.Class.String() + ": " + e.err.Error()
}

func (e *CallError) Unwrap() error {
	return e.err
}

// NewCallError wraps err with the given class.
func NewCallError(class Class, err error) *CallError {
	return &CallError{Class: class, err: err}
}

// IsTransient reports whether the error is expected to resolve on retry.
// Decode failures are permanent here; the client promotes payload decode
// failures to transient itself when configured to.
func IsTransient(err error) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Class == ClassTransport || ce.Class == ClassServer
}

// IsFatal reports whether the error should not be retried.
func IsFatal(err error) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	return !IsTransient(err)
}

// ClassOf returns the error's class, or ClassTransport with ok=false when the
// error is not a CallError.
func ClassOf(err error) (Class, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return ClassTransport, false
}
