package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseReflect   Phase = "reflect"   // building member descriptors
	PhaseInvoke    Phase = "invoke"    // method/property/event operations
	PhaseMarshal   Phase = "marshal"   // crossing values over the boundary
	PhaseDispatch  Phase = "dispatch"  // event loop and listener delivery
	PhaseHost      Phase = "host"      // host runtime side
	PhaseTransport Phase = "transport" // rpc and wasm channels
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseLoad      Phase = "load"      // guest module loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
	KindClosed         Kind = "closed"
	KindRemote         Kind = "remote"
	KindReserved       Kind = "reserved"
	KindInstantiation  Kind = "instantiation"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Object string
	Member string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Object != "" || e.Member != "" {
		b.WriteString(" at ")
		switch {
		case e.Object != "" && e.Member != "":
			b.WriteString(e.Object)
			b.WriteByte('.')
			b.WriteString(e.Member)
		case e.Object != "":
			b.WriteString(e.Object)
		default:
			b.WriteString(e.Member)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Object sets the remote object ID
func (b *Builder) Object(id string) *Builder {
	b.err.Object = id
	return b
}

// Member sets the member name
func (b *Builder) Member(name string) *Builder {
	b.err.Member = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error for a member value
func TypeMismatch(phase Phase, member string, want string, got any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Member: member,
		Detail: fmt.Sprintf("expected %s, got %T", want, got),
		Value:  got,
	}
}

// MemberNotFound creates an error for a member the object does not expose
func MemberNotFound(phase Phase, object, member, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Object: object,
		Member: member,
		Detail: fmt.Sprintf("no %s named %q", what, member),
	}
}

// Reflection creates a construction error for a handle that could not be reflected
func Reflection(object, op string, cause error) *Error {
	return &Error{
		Phase:  PhaseReflect,
		Kind:   KindInvalidData,
		Object: object,
		Detail: op,
		Cause:  cause,
	}
}

// Remote wraps an error returned by the host call primitive
func Remote(phase Phase, object, member string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRemote,
		Object: object,
		Member: member,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Closed creates an error for an operation on a closed component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Instantiation creates a guest instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate guest module",
		Cause:  cause,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a configuration parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
