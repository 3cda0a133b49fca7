// Package apperr defines the abstract error-kind taxonomy of §7: every
// error the core surfaces across its RPC boundary carries one of these
// kinds, recoverable with errors.Is / errors.As against *Error.
package apperr

import "fmt"

type Kind int

const (
	Unknown Kind = iota
	NotFound
	Conflict
	InvalidInput
	ModelLoad
	DeviceTransient
	PipelineError
	BusDisconnected
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	case ModelLoad:
		return "model_load"
	case DeviceTransient:
		return "device_transient"
	case PipelineError:
		return "pipeline_error"
	case BusDisconnected:
		return "bus_disconnected"
	default:
		return "unknown"
	}
}

// Error pairs an abstract kind with a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, apperr.NotFound) work by comparing kinds when the
// target is itself a bare *Error carrying only a Kind (constructed via
// Sentinel).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

// Sentinel returns a bare *Error carrying only a kind, suitable as the
// target of errors.Is(err, apperr.Sentinel(apperr.NotFound)).
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, otherwise Unknown.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return Unknown
	}
	return e.Kind
}
