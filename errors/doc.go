// Package errors provides structured error types for the IA runtime bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the remote object ID and member name involved, plus the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
//		Object("h-12").
//		Member("pointSize").
//		Detail("expected listener, got %T", v).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MemberNotFound(errors.PhaseInvoke, "h-12", "connect", "method")
//	err := errors.Reflection("h-12", "GetMethods", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
