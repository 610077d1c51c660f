// Package sessions implements the server-side session store: issuing,
// validating, resolving and revoking opaque access tokens.
//
// Sessions live in process memory only and are discarded on restart. The
// store is multi-session: every successful login issues an independent
// token, and revoking one leaves the others valid.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
)

// tokenByteLen is the number of random bytes per token (256 bits of
// entropy, hex-encoded to 64 characters).
const tokenByteLen = 32

// Store issues and resolves session tokens. Implementations must be safe
// for concurrent use by request handlers.
type Store interface {
	// Issue creates a session for login and returns its token.
	Issue(login string) (string, error)

	// Validate reports whether token exists and has not expired.
	Validate(token string) bool

	// Resolve returns the login a valid token was issued for. It reports
	// false both for unknown and for expired tokens; callers cannot tell
	// the two apart.
	Resolve(token string) (string, bool)

	// Revoke removes the session. Revoking an unknown token is a no-op.
	Revoke(token string)
}

// MemoryStore keeps sessions in an in-process map guarded by a RWMutex.
// Expired entries are dropped lazily when looked up.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	validity time.Duration
	logger   logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func NewMemoryStore(validity time.Duration, logger logging.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		validity: validity,
		logger:   logger.With("module", "sessions"),
		now:      time.Now,
	}
}

func (s *MemoryStore) Issue(login string) (string, error) {
	token, err := common.MakeRandHexString(tokenByteLen)
	if err != nil {
		return "", err
	}

	issued := s.now()

	s.mu.Lock()
	s.sessions[token] = models.Session{
		Token:     token,
		Login:     login,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(s.validity),
	}
	s.mu.Unlock()

	s.logger.Debug(context.Background(), "session issued", "login", login)
	return token, nil
}

func (s *MemoryStore) Validate(token string) bool {
	_, ok := s.Resolve(token)
	return ok
}

func (s *MemoryStore) Resolve(token string) (string, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}

	if !s.now().Before(sess.ExpiresAt) {
		s.dropExpired(token)
		return "", false
	}

	return sess.Login, true
}

func (s *MemoryStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// dropExpired removes token if it is still present and still expired; the
// entry may have been replaced between the read and the write lock.
func (s *MemoryStore) dropExpired(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if ok && !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
	}
}
