// Package errors provides the classified error type used across docsite.
//
// A ClassifiedError carries a category (what part of the build failed), a
// severity (whether the build can continue), a retry hint and structured
// context. The CLI adapter turns a classified error into a user-facing
// message and a process exit code.
//
// Example usage:
//
//	err := errors.WrapError(ioErr, errors.CategoryDocument, "read document").
//		WithContext("path", doc.RelPath).
//		Build()
package errors
