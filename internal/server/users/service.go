// Package users implements registration and credential verification, and
// drives the session store on login/logout.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
	"github.com/dmitrijs2005/cloudstore/internal/server/sessions"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo     Repository
	sessions sessions.Store
	logger   logging.Logger
}

func NewService(repo Repository, sessions sessions.Store, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger.With("module", "users"),
	}
}

func (s *Service) Register(ctx context.Context, login string, password string) (*models.User, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Login:        login,
		PasswordHash: hash,
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "login", login)
	return user, nil
}

// Login verifies the credentials and issues a session token. Unknown login
// and wrong password are reported identically as ErrorUnauthorized.
func (s *Service) Login(ctx context.Context, login string, password string) (string, error) {

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := s.sessions.Issue(user.Login)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err.Error())
		return "", common.ErrorInternal
	}

	return token, nil
}

// Logout revokes the session. An unknown or expired token is reported as
// ErrorUnauthorized, matching the rejection a request with it would get.
func (s *Service) Logout(ctx context.Context, token string) error {
	if !s.sessions.Validate(token) {
		return common.ErrorUnauthorized
	}
	s.sessions.Revoke(token)
	return nil
}

// Get resolves a login to its user record; common.ErrorNotFound if absent.
func (s *Service) Get(ctx context.Context, login string) (*models.User, error) {
	return s.repo.GetByLogin(ctx, login)
}
