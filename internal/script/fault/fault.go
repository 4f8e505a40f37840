// Package fault defines the error taxonomy shared by the script dispatcher, the
// scheduled bridge and every transport that exposes them.
//
// Every failure leaving the gateway is a *Fault carrying one Kind. Transports
// translate the Kind into their own status vocabulary with HTTPStatus and
// GRPCCode; callers classify arbitrary errors with KindOf.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is an unexpected execution or collaborator failure.
	KindInternal Kind = iota
	// KindClientInput is a malformed request: bad descriptor, unknown action, wrong arity.
	KindClientInput
	// KindCompile is a script that could not be compiled.
	KindCompile
	// KindDenied is a value thrown by script code.
	KindDenied
	// KindUnavailable is a unit whose backing engine is gone.
	KindUnavailable
	// KindNotSupported is an operation the endpoint never implements.
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "ClientInputFault"
	case KindCompile:
		return "CompileFault"
	case KindDenied:
		return "Denied"
	case KindUnavailable:
		return "Unavailable"
	case KindNotSupported:
		return "NotSupportedFault"
	default:
		return "InternalFault"
	}
}

// Sentinels matching each Kind through errors.Is.
var (
	ErrInternal     = errors.New("internal fault")
	ErrClientInput  = errors.New("client input fault")
	ErrCompile      = errors.New("compile fault")
	ErrDenied       = errors.New("denied")
	ErrUnavailable  = errors.New("service unavailable")
	ErrNotSupported = errors.New("not supported")
)

func (k Kind) sentinel() error {
	switch k {
	case KindClientInput:
		return ErrClientInput
	case KindCompile:
		return ErrCompile
	case KindDenied:
		return ErrDenied
	case KindUnavailable:
		return ErrUnavailable
	case KindNotSupported:
		return ErrNotSupported
	default:
		return ErrInternal
	}
}

// Fault is a classified failure. Message is safe to return to callers; Cause
// is kept for logging and errors.Is/As traversal.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil && f.Message == "" {
		return f.Cause.Error()
	}
	return f.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (f *Fault) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Kind.sentinel()}
	}
	return []error{f.Kind.sentinel(), f.Cause}
}

// New creates a Fault of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault of the given kind around cause. An empty message falls
// back to the cause text.
func Wrap(kind Kind, cause error, message string) *Fault {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// ClientInput is shorthand for New(KindClientInput, ...).
func ClientInput(format string, args ...any) *Fault {
	return New(KindClientInput, format, args...)
}

// NotSupported is shorthand for New(KindNotSupported, ...).
func NotSupported(format string, args ...any) *Fault {
	return New(KindNotSupported, format, args...)
}

// Unavailable is shorthand for New(KindUnavailable, ...).
func Unavailable(format string, args ...any) *Fault {
	return New(KindUnavailable, format, args...)
}

// Denied carries the textual form of a value thrown by a script.
func Denied(thrown string) *Fault {
	return &Fault{Kind: KindDenied, Message: thrown}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Fault {
	return Wrap(KindInternal, cause, "")
}

// KindOf classifies err. Errors that are not a *Fault are internal.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// As converts err into a *Fault, wrapping unclassified errors as internal.
// A nil error returns nil.
func As(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Internal(err)
}
