// Package app assembles the authentication service from its configuration
// and runs the HTTP server until a termination signal arrives.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/authsrv/internal/auth"
	"github.com/patric-chuzhbe/authsrv/internal/authenticator"
	"github.com/patric-chuzhbe/authsrv/internal/config"
	"github.com/patric-chuzhbe/authsrv/internal/db/memorystorage"
	"github.com/patric-chuzhbe/authsrv/internal/db/postgresdb"
	"github.com/patric-chuzhbe/authsrv/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/authsrv/internal/grpcserver"
	"github.com/patric-chuzhbe/authsrv/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/authsrv/internal/ipchecker"
	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/metrics"
	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/password"
	"github.com/patric-chuzhbe/authsrv/internal/router"
	"github.com/patric-chuzhbe/authsrv/internal/service"
	"github.com/patric-chuzhbe/authsrv/internal/user"
)

const shutdownTimeout = 10 * time.Second

type storage interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error)
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// App holds the configuration, the credential store and the transports of
// the authentication service.
type App struct {
	cfg          *config.Config
	db           storage
	httpHandler  http.Handler
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New loads the configuration, initializes the logger, opens the credential
// store and builds the router.
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(app.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.New(auth.Options{
		Secret:        []byte(app.cfg.JWTSecret),
		Algorithm:     app.cfg.JWTAlgorithm,
		Lifetime:      app.cfg.TokenLifetime(),
		EnforceExpiry: app.cfg.EnforceTokenExpiry,
	})
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet, ipchecker.WithTrustedProxy(app.cfg.TrustedProxy))
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	svc := service.New(app.db, hasher, tokens)
	m := metrics.New()
	observeMe := func(err error) {
		m.ObserveAuth(metrics.OperationMe, metrics.OutcomeOf(err))
	}

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.New(
			app.cfg.GRPCAddr,
			grpcserver.NewAuthHandler(svc, m),
			interceptor.NewAuthInterceptor(svc, observeMe),
		)
		if err != nil {
			_ = app.db.Close()
			return nil, err
		}
	}

	app.httpHandler = router.New(
		svc,
		authenticator.New(svc, observeMe),
		router.WithAPIPrefix(app.cfg.APIPrefix),
		router.WithCORSAllowedOrigins(app.cfg.CORSAllowedOrigins),
		router.WithMetrics(m, checker),
	)

	return app, nil
}

// Handler exposes the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// and closes the credential store.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve is Run with an explicit stop context.
func (a *App) Serve(ctx context.Context) error {
	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr, "APIPrefix", a.cfg.APIPrefix)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.grpcListener.Addr().String())
		go func() {
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				serverErrCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing the storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.stopGRPC(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Join(fmt.Errorf("server shutdown error: %w", err), a.db.Close())
		}

		return a.db.Close()

	case err := <-serverErrCh:
		a.stopGRPC(context.Background())
		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

// stopGRPC drains in-flight calls, falling back to a hard stop when ctx
// expires first.
func (a *App) stopGRPC(ctx context.Context) {
	if a.grpcServer == nil {
		return
	}

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		a.grpcServer.Stop()
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorageByType(cfg *config.Config) (storage, error) {
	storageType, dsn := cfg.Storage()

	switch storageType {
	case models.StorageTypePostgresql:
		return postgresdb.New(context.Background(), dsn, cfg.DBConnectionTimeout)

	case models.StorageTypeSQLite:
		return sqlitedb.New(context.Background(), dsn, cfg.DBConnectionTimeout)

	case models.StorageTypeMemory:
		return memorystorage.New()
	}

	return nil, errors.New("unknown storage type")
}
