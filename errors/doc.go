// Package errors provides structured error types for the wasm-resolver library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending name, Go/WIT type names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindNotFound).
//		Name("m:lib/math@1.0.0").
//		Detail("type not defined in library").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseResolve, "type", name)
//	err := errors.NotLoaded("type")
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches by Kind alone, regardless of phase.
package errors
