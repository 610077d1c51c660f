// Package server initializes and runs the main application server.
// It wires the database, session store and blob backend together, handles
// graceful shutdown and starts the HTTP server for file storage.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/blob"
	"github.com/dmitrijs2005/cloudstore/internal/server/config"
	"github.com/dmitrijs2005/cloudstore/internal/server/db"
	"github.com/dmitrijs2005/cloudstore/internal/server/httpapi"
	"github.com/dmitrijs2005/cloudstore/internal/server/sessions"
	"github.com/dmitrijs2005/cloudstore/internal/server/storage"
	"github.com/dmitrijs2005/cloudstore/internal/server/users"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	manager        db.RepositoryManager
	sessionStore   sessions.Store
	userService    *users.Service
	storageService *storage.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	manager, err := db.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	sessionStore := sessions.NewMemoryStore(c.SessionValidityDuration, logger)

	blobStore, err := newBlobStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := users.NewService(manager.Users(), sessionStore, logger)
	st := storage.NewService(manager.Files(), blobStore, logger)

	return &App{
		config:         c,
		logger:         logger,
		manager:        manager,
		sessionStore:   sessionStore,
		userService:    us,
		storageService: st,
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config, logger logging.Logger) (blob.Store, error) {
	switch c.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		}, logger)
	case "disk":
		return blob.NewDiskStore(c.StorageLocation, logger)
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", c.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(app.config.EndpointAddr, app.logger,
		app.userService, app.sessionStore, app.storageService, app.config.MaxUploadSizeBytes)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
