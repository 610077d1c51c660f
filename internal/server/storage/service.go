// Package storage coordinates file bytes in a blob store with metadata
// records, keeping the two in sync: for creation the bytes are written
// first (an orphan file is harmless and reclaimable), for deletion the
// metadata goes first (a record pointing at missing bytes is not).
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/blob"
	"github.com/dmitrijs2005/cloudstore/internal/server/files"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
	"github.com/google/uuid"
)

type Service struct {
	repo   files.Repository
	blob   blob.Store
	logger logging.Logger

	// locks serializes operations per (user, filename) key so that, for
	// example, two concurrent saves of the same name cannot both pass the
	// existence check. Different keys never contend.
	locks *lockTable
}

func NewService(repo files.Repository, blobStore blob.Store, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		blob:   blobStore,
		logger: logger.With("module", "storage"),
		locks:  newLockTable(),
	}
}

// lockTable hands out one mutex per key and reference-counts the holders.
// An entry is dropped as soon as the last holder releases it, so the table
// size is bounded by the number of in-flight operations, not by how many
// distinct filenames a caller has ever probed.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (t *lockTable) acquire(key string) *lockEntry {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return e
}

func (t *lockTable) release(key string, e *lockEntry) {
	e.mu.Unlock()

	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func lockKey(user *models.User, name string) string {
	return user.ID + "/" + name
}

// Exists reports whether a metadata record exists for (user, name).
// Invalid filenames report false instead of failing, since the check is
// used defensively before uploads.
func (s *Service) Exists(ctx context.Context, user *models.User, name string) (bool, error) {
	if err := blob.ValidateFilename(name); err != nil {
		return false, nil
	}
	return s.repo.ExistsByUserAndFilename(ctx, user.ID, name)
}

// Save stores the bytes and creates the metadata record. It refuses to
// overwrite: an existing record yields common.ErrorAlreadyExists. Bytes hit
// the blob store before the record is committed, so a crash in between
// leaves an orphan file rather than a dangling record.
func (s *Service) Save(ctx context.Context, user *models.User, name, originalName, contentType string, data []byte) (*models.StoredFile, error) {
	if err := blob.ValidateFilename(name); err != nil {
		return nil, err
	}

	key := lockKey(user, name)
	e := s.locks.acquire(key)
	defer s.locks.release(key, e)

	exists, err := s.repo.ExistsByUserAndFilename(ctx, user.ID, name)
	if err != nil {
		return nil, fmt.Errorf("existence check: %w", err)
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	if err := s.blob.Write(ctx, user.Login, name, data); err != nil {
		return nil, err
	}

	file := &models.StoredFile{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		Filename:         name,
		OriginalFilename: originalName,
		Size:             int64(len(data)),
		ContentType:      contentType,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, file); err != nil {
		// The bytes are already on disk; they become an orphan that a
		// sweep can reclaim later.
		s.logger.Warn(ctx, "metadata commit failed after write, orphan left behind",
			"login", user.Login, "filename", name, "error", err.Error())
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, common.ErrorInternal
	}

	return file, nil
}

// Read returns the stored bytes. A record whose bytes are missing from the
// blob store is an integrity violation: logged as such for operators,
// reported to the caller as a plain ErrorNotFound.
func (s *Service) Read(ctx context.Context, user *models.User, name string) ([]byte, error) {
	if err := blob.ValidateFilename(name); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByUserAndFilename(ctx, user.ID, name); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}

	data, err := s.blob.Read(ctx, user.Login, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, common.ErrorIntegrityViolation.Error(),
				"login", user.Login, "filename", name)
			return nil, common.ErrorNotFound
		}
		return nil, err
	}

	return data, nil
}

// Delete removes the metadata record first; the physical delete afterwards
// is best-effort — listings must be right even if an orphan file lingers.
func (s *Service) Delete(ctx context.Context, user *models.User, name string) error {
	if err := blob.ValidateFilename(name); err != nil {
		return err
	}

	key := lockKey(user, name)
	e := s.locks.acquire(key)
	defer s.locks.release(key, e)

	n, err := s.repo.DeleteByUserAndFilename(ctx, user.ID, name)
	if err != nil {
		return fmt.Errorf("metadata delete: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	if err := s.blob.Remove(ctx, user.Login, name); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "could not delete physical file",
			"login", user.Login, "filename", name, "error", err.Error())
	}

	return nil
}

// Rename validates both names, moves the bytes first and then commits the
// metadata change, rolling the move back if the commit fails.
func (s *Service) Rename(ctx context.Context, user *models.User, oldName, newName string) error {
	if err := blob.ValidateFilename(oldName); err != nil {
		return err
	}
	if err := blob.ValidateFilename(newName); err != nil {
		return err
	}
	if oldName == newName {
		return common.ErrorAlreadyExists
	}

	firstKey, secondKey := lockKey(user, oldName), lockKey(user, newName)
	if oldName > newName {
		firstKey, secondKey = secondKey, firstKey
	}
	fe := s.locks.acquire(firstKey)
	defer s.locks.release(firstKey, fe)
	se := s.locks.acquire(secondKey)
	defer s.locks.release(secondKey, se)

	exists, err := s.repo.ExistsByUserAndFilename(ctx, user.ID, newName)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	if exists {
		return common.ErrorAlreadyExists
	}

	if _, err := s.repo.GetByUserAndFilename(ctx, user.ID, oldName); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("metadata lookup: %w", err)
	}

	if err := s.blob.Rename(ctx, user.Login, oldName, newName); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, common.ErrorIntegrityViolation.Error(),
				"login", user.Login, "filename", oldName)
			return common.ErrorNotFound
		}
		return err
	}

	if err := s.repo.UpdateFilename(ctx, user.ID, oldName, newName); err != nil {
		if rbErr := s.blob.Rename(ctx, user.Login, newName, oldName); rbErr != nil {
			s.logger.Error(ctx, "rename rollback failed",
				"login", user.Login, "filename", oldName, "error", rbErr.Error())
		}
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return common.ErrorInternal
	}

	return nil
}

// List returns the user's records, most recently created first. limit <= 0
// returns everything; each call re-reads current state.
func (s *Service) List(ctx context.Context, user *models.User, limit int) ([]*models.StoredFile, error) {
	return s.repo.ListByUser(ctx, user.ID, limit)
}
