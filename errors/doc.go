// Package errors provides structured error types for the reflect-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries context: a path (module, type, function, parameter), the
// observed and expected kinds, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTypeMismatch).
//		Path("Physics", "Body", "Add", "a").
//		Got("string").
//		Want("int").
//		Build()
//
// Or use convenience constructors for the common cases:
//
//	err := errors.AlreadyRegistered(42, "Physics.Body")
//	err := errors.ArityMismatch([]string{"Physics", "Add"}, 2, 1)
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches on Kind alone:
//
//	if errors.IsKind(err, errors.KindArityMismatch) { ... }
package errors
