// Package httpapi exposes the storage service over HTTP: registration,
// login/logout and the authenticated file operations.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
	"github.com/dmitrijs2005/cloudstore/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

// userService is the slice of users.Service the handlers need.
type userService interface {
	Register(ctx context.Context, login string, password string) (*models.User, error)
	Login(ctx context.Context, login string, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Get(ctx context.Context, login string) (*models.User, error)
}

// storageService is the slice of storage.Service the handlers need.
type storageService interface {
	Save(ctx context.Context, user *models.User, name, originalName, contentType string, data []byte) (*models.StoredFile, error)
	Read(ctx context.Context, user *models.User, name string) ([]byte, error)
	Delete(ctx context.Context, user *models.User, name string) error
	Rename(ctx context.Context, user *models.User, oldName, newName string) error
	List(ctx context.Context, user *models.User, limit int) ([]*models.StoredFile, error)
}

type Server struct {
	address       string
	logger        logging.Logger
	users         userService
	sessions      sessions.Store
	storage       storageService
	maxUploadSize int64
}

func NewServer(a string, l logging.Logger, us userService, ss sessions.Store, st storageService, maxUploadSize int64) (*Server, error) {
	registerValidators()
	return &Server{
		address:       a,
		logger:        l.With("module", "http_server"),
		users:         us,
		sessions:      ss,
		storage:       st,
		maxUploadSize: maxUploadSize,
	}, nil
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/register", s.handleRegister)
	r.POST("/login", s.handleLogin)
	r.POST("/logout", s.handleLogout)

	authed := r.Group("/", s.authRequired)
	authed.POST("/file", s.handleUpload)
	authed.GET("/file", s.handleDownload)
	authed.DELETE("/file", s.handleDelete)
	authed.PUT("/file", s.handleRename)
	authed.GET("/list", s.handleList)

	return r
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
