// Package blob stores the raw bytes of uploaded files, keyed by
// (owner, filename). It owns filename validation and, for the disk backend,
// the path confinement that keeps every operation inside the owner's
// directory.
package blob

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/cloudstore/internal/common"
)

// maxFilenameLen bounds stored filenames, matching common filesystem limits.
const maxFilenameLen = 255

// Store is a byte store for uploaded files. Read and Remove return
// common.ErrorNotFound when no bytes exist for the key; Rename returns it
// when the source is missing. Every method validates both the owner and the
// filename before touching the backend.
type Store interface {
	Write(ctx context.Context, owner, name string, data []byte) error
	Read(ctx context.Context, owner, name string) ([]byte, error)
	Rename(ctx context.Context, owner, oldName, newName string) error
	Remove(ctx context.Context, owner, name string) error
}

// ValidateFilename checks a candidate stored filename: non-empty, at most
// 255 characters, no ".." sequence, no path separators, and only ASCII
// letters, digits, '.', '_' and '-'. The same rule is applied to owner
// namespaces since they become directory names.
func ValidateFilename(name string) error {
	if name == "" || len(name) > maxFilenameLen {
		return common.ErrorInvalidFilename
	}
	if strings.Contains(name, "..") {
		return common.ErrorInvalidFilename
	}
	if strings.ContainsAny(name, `/\`) {
		return common.ErrorInvalidFilename
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return common.ErrorInvalidFilename
		}
	}
	return nil
}
