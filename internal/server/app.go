// Package server wires the user service together: configuration, database,
// migrations, auth core, directory services, and the HTTP and gRPC
// endpoints. It handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
	"github.com/dmitrijs2005/usersvc/internal/server/httpapi"
	"github.com/dmitrijs2005/usersvc/internal/server/metrics"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"github.com/dmitrijs2005/usersvc/internal/server/storage"

	gs "github.com/dmitrijs2005/usersvc/internal/server/grpc"
)

// Seams for tests.
var (
	openDB               = repomanager.Open
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newImageStore        = func(ctx context.Context, o storage.S3Options) (storage.ImageStore, error) {
		return storage.NewS3Store(ctx, o)
	}
	stdoutLogger = func(debug bool) logging.Logger { return logging.NewJSONLogger(os.Stdout, debug) }
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := stdoutLogger(c.Mode == config.ModeDev)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	hasher, err := auth.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(c.SecretKey)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	authService := auth.NewService(rm.Users(db), tokens, hasher, c.AccessTokenTTL, logger,
		auth.WithLoginObserver(m.ObserveLogin))

	images, err := newImageStore(ctx, storage.S3Options{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	userService := services.NewUserService(db, rm, authService, images, c, logger)

	router := httpapi.NewRouter(httpapi.Options{
		Users:      userService,
		Auth:       authService,
		Tokens:     tokens,
		Metrics:    m,
		Health:     db.PingContext,
		Logger:     logger,
		CORSOrigin: c.CORSOrigin,
		APIURL:     c.APIURL,
	})

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		httpServer: httpapi.NewServer(c.HTTPAddr, router, logger),
		grpcServer: gs.NewGRPCServer(c.GRPCAddr, logger, db, gs.DefaultCheckInterval),
	}, nil
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

// Run serves until a signal arrives, ctx is cancelled, or one of the
// servers fails. A failing server stops the other one. The first server
// error is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.Mode)

	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		app.logger.Error(ctx, err.Error())
		once.Do(func() { firstErr = err })
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
		cancelFunc()
	}()
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			fail(fmt.Errorf("grpc server: %w", err))
		}
		cancelFunc()
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.WithoutCancel(ctx), "closing database", "error", err)
	}
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	return firstErr
}
