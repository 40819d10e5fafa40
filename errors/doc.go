// Package errors provides structured error types for the wasm-module library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the detail message, the offending value, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
//		GoType("[]string").
//		Detail("expected a numeric slice").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoMemory("write")
//	err := errors.Capacity("write", offset, size, capacity)
//
// Sentinels (ErrUnsupported, ErrNoMemory, ErrCapacity, ErrClosed) match any
// error with the same Phase and Kind:
//
//	if errors.Is(err, wmerrors.ErrCapacity) { ... }
//
// Host compilation and instantiation failures keep the wazero error as Cause,
// so errors.Unwrap returns it unchanged.
package errors
