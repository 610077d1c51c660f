// Package common defines shared constants and sentinel errors used across
// client and server layers of CloudStore. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Filename validation and path confinement errors. ErrorPathTraversal is
	// kept distinct from ErrorInvalidFilename: the former means a syntactically
	// acceptable name still resolved outside the owner's directory.
	ErrorInvalidFilename = errors.New("invalid filename")
	ErrorPathTraversal   = errors.New("path traversal attempt")

	// ErrorIntegrityViolation marks a metadata record whose backing bytes are
	// missing on disk. Surfaced to callers as ErrorNotFound, logged as is.
	ErrorIntegrityViolation = errors.New("storage integrity violation")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
)
