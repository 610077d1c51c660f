package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/filex"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
)

// DiskStore keeps uploads under root/owner/filename on the local
// filesystem. Writes are atomic (temp file + rename), and every resolved
// path is canonicalized and checked to lie strictly inside the owner's
// directory. The allow-list in ValidateFilename stops traversal
// syntactically; the containment check covers whatever it missed
// (normalization quirks, symlinked user directories).
type DiskStore struct {
	root   string
	logger logging.Logger
}

func NewDiskStore(root string, logger logging.Logger) (*DiskStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs %s: %w", root, err)
	}
	if err := filex.EnsureDir(abs); err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", abs, err)
	}
	return &DiskStore{
		root:   resolved,
		logger: logger.With("module", "blob"),
	}, nil
}

// resolve validates owner and name and returns the canonical on-disk path.
// With ensureDir the owner directory is created if absent; without it a
// missing owner directory yields common.ErrorNotFound. A path escaping the
// owner directory yields common.ErrorPathTraversal.
func (s *DiskStore) resolve(owner, name string, ensureDir bool) (string, error) {
	if err := ValidateFilename(owner); err != nil {
		return "", err
	}
	if err := ValidateFilename(name); err != nil {
		return "", err
	}

	ownerDir := filepath.Join(s.root, owner)
	if ensureDir {
		if err := filex.EnsureDir(ownerDir); err != nil {
			return "", err
		}
	}

	resolvedDir, err := filepath.EvalSymlinks(ownerDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("resolve %s: %w", ownerDir, err)
	}

	sep := string(os.PathSeparator)
	if !strings.HasPrefix(resolvedDir, s.root+sep) {
		return "", common.ErrorPathTraversal
	}

	path := filepath.Clean(filepath.Join(resolvedDir, name))
	if path == resolvedDir || !strings.HasPrefix(path, resolvedDir+sep) {
		return "", common.ErrorPathTraversal
	}

	// The leaf itself can be a symlink planted inside the owner directory.
	// Canonicalize the full path when it exists and re-check containment so
	// a link pointing outside the root is never followed. A missing leaf is
	// fine: the parent is already canonical, and an atomic write replaces a
	// dangling link instead of following it.
	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if !strings.HasPrefix(resolvedPath, resolvedDir+sep) {
		return "", common.ErrorPathTraversal
	}

	return resolvedPath, nil
}

func (s *DiskStore) Write(ctx context.Context, owner, name string, data []byte) error {
	path, err := s.resolve(owner, name, true)
	if err != nil {
		return err
	}
	return filex.WriteAtomic(path, data, 0o600)
}

func (s *DiskStore) Read(ctx context.Context, owner, name string) ([]byte, error) {
	path, err := s.resolve(owner, name, false)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *DiskStore) Rename(ctx context.Context, owner, oldName, newName string) error {
	oldPath, err := s.resolve(owner, oldName, false)
	if err != nil {
		return err
	}
	newPath, err := s.resolve(owner, newName, false)
	if err != nil {
		return err
	}

	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("stat %s: %w", oldPath, err)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}
	return nil
}

func (s *DiskStore) Remove(ctx context.Context, owner, name string) error {
	path, err := s.resolve(owner, name, false)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
