package errors

// Package errors provides sentinel errors for document discovery.
// Callers wrap them with fmt.Errorf("%w: ...") and classify with errors.Is.

import "errors"

var (
	// ErrSourceRootUnreadable indicates the configured source directory does not exist or cannot be listed.
	ErrSourceRootUnreadable = errors.New("source directory unreadable")

	// ErrDocsDirWalkFailed indicates filesystem traversal below the source root failed.
	ErrDocsDirWalkFailed = errors.New("documentation directory walk failed")

	// ErrFileReadFailed indicates reading content from a discovered document failed.
	ErrFileReadFailed = errors.New("documentation file read failed")

	// ErrInvalidPattern indicates an include or exclude glob failed to compile.
	ErrInvalidPattern = errors.New("invalid discovery pattern")

	// ErrInvalidRelativePath indicates calculating a path relative to the source root failed.
	ErrInvalidRelativePath = errors.New("invalid relative path calculation")
)
