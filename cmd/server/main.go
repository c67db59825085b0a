// Package main initializes and starts the PartKeeper web server,
// setting up configuration, logging, storage, services, handlers and
// graceful shutdown.
package main

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/PartKeeper/internal/blob"
	"github.com/atinyakov/PartKeeper/internal/config"
	"github.com/atinyakov/PartKeeper/internal/db"
	"github.com/atinyakov/PartKeeper/internal/logger"
	"github.com/atinyakov/PartKeeper/internal/metrics"
	"github.com/atinyakov/PartKeeper/internal/repository"
	"github.com/atinyakov/PartKeeper/internal/server/handler/http"
	"github.com/atinyakov/PartKeeper/internal/service"
	"github.com/atinyakov/PartKeeper/internal/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}

// stores are the persistence backends selected by configuration.
type stores struct {
	parts   service.PartStore
	seeder  db.PartSeeder
	users   service.UserRepository
	closers []io.Closer
}

func (s *stores) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func openStores(ctx context.Context, options *config.Options) (*stores, error) {
	switch options.Storage {
	case config.StoragePostgres, config.StorageSQLite:
		var (
			conn    *sql.DB
			err     error
			dialect repository.Dialect
		)
		if options.Storage == config.StoragePostgres {
			conn, err = db.InitPostgres(options.DatabaseDSN)
			dialect = repository.DialectPostgres
		} else {
			conn, err = db.InitSQLite(options.DatabaseDSN)
			dialect = repository.DialectSQLite
		}
		if err != nil {
			return nil, fmt.Errorf("cannot init database: %w", err)
		}
		parts := repository.NewPartRepository(conn, dialect)
		return &stores{
			parts:   parts,
			seeder:  parts,
			users:   repository.NewUserRepository(conn, dialect),
			closers: []io.Closer{conn},
		}, nil

	case config.StorageJSON:
		var (
			store blob.Store
			key   = options.DocumentPath
			err   error
		)
		if options.S3.Bucket != "" {
			store, err = blob.NewS3Store(ctx, blob.S3Config{
				Bucket:          options.S3.Bucket,
				Region:          options.S3.Region,
				Endpoint:        options.S3.Endpoint,
				AccessKeyID:     options.S3.AccessKeyID,
				SecretAccessKey: options.S3.SecretAccessKey,
				PathStyle:       options.S3.PathStyle,
			})
		} else {
			store, err = blob.NewFileStore(filepath.Dir(key))
			key = filepath.Base(key)
		}
		if err != nil {
			return nil, fmt.Errorf("cannot init document store: %w", err)
		}
		parts, err := repository.NewDocumentRepository(ctx, store, key)
		if err != nil {
			return nil, err
		}
		return &stores{parts: parts, seeder: parts}, nil
	}
	return nil, fmt.Errorf("unknown storage %q", options.Storage)
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (err error) {
	// Open the configured store and apply migrations.
	st, err := openStores(ctx, options)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	if options.Seed {
		n, err := db.Seed(ctx, st.seeder)
		if err != nil {
			return err
		}
		zapLogger.Info("seeded starter parts", zap.Int("count", n))
	}

	// Initialize business-logic services.
	m := metrics.New()
	inventory := service.NewInventoryService(st.parts, service.Options{
		Tags:         options.Tags,
		StoreTimeout: time.Duration(options.StoreTimeout),
		LockTimeout:  time.Duration(options.LockTimeout),
		Metrics:      m,
		Logger:       zapLogger,
	})

	// Create HTTP handlers.
	renderer, err := http.NewRenderer()
	if err != nil {
		return err
	}
	sessions := session.NewManager(options.SecretKey, options.TLSEnabled(), zapLogger)
	pages := &http.Pages{
		Renderer:    renderer,
		Sessions:    sessions,
		Logger:      zapLogger,
		AuthEnabled: options.AuthEnabled(),
		Tags:        inventory.Tags(),
	}
	inventoryHandler := &http.InventoryHandler{Pages: pages, Inventory: inventory}

	var authHandler *http.AuthHandler
	if options.AuthEnabled() {
		authHandler = &http.AuthHandler{Pages: pages, AuthService: service.NewAuthService(st.users)}
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(inventoryHandler, authHandler, sessions, m, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("starting server",
			zap.String("addr", options.Port),
			zap.String("storage", options.Storage),
			zap.Bool("tls", options.TLSEnabled()),
		)
		var err error
		if options.TLSEnabled() {
			err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
