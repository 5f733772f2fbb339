// Package app wires the Quarry components into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	apihttp "github.com/quarrydb/quarry/internal/api/http"
	"github.com/quarrydb/quarry/internal/audit"
	"github.com/quarrydb/quarry/internal/catalog"
	"github.com/quarrydb/quarry/internal/config"
	"github.com/quarrydb/quarry/internal/executor"
	"github.com/quarrydb/quarry/internal/ingest"
	"github.com/quarrydb/quarry/internal/logging"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/server"
	"github.com/quarrydb/quarry/internal/storage"
	"github.com/quarrydb/quarry/internal/store"
)

// App is the assembled Quarry service.
type App struct {
	cfg *config.Config
	log *slog.Logger

	store    *store.Store
	pipeline *ingest.Pipeline
	executor *executor.Executor
	catalog  *catalog.Catalog
	stats    *observability.QueryStats

	httpSrv  *http.Server
	shutdown *server.ShutdownManager
	closeLog func()
}

// New builds the application from configuration. The config must already
// be resolved and validated.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	log, closeLog := logging.Setup(cfg.Logging.SeqURL, cfg.LogLevel())

	st, err := store.Open(cfg.StorePath(), store.Options{
		BusyTimeout:  cfg.Query.BusyTimeout,
		ReadPoolSize: cfg.Query.ReadPoolSize,
	})
	if err != nil {
		closeLog()
		return nil, err
	}

	archive, err := BuildArchive(ctx, cfg)
	if err != nil {
		st.Close()
		closeLog()
		return nil, err
	}

	stats := observability.NewQueryStats()
	exec := executor.New(st,
		executor.Config{Timeout: cfg.Query.Timeout},
		audit.NewSlogRecorder(log),
		stats,
	)

	a := &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		pipeline: ingest.New(st, archive, log),
		executor: exec,
		catalog:  catalog.New(st),
		stats:    stats,
		shutdown: server.NewShutdownManager(0),
		closeLog: closeLog,
	}

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Executor:   a.executor,
		Pipeline:   a.pipeline,
		Catalog:    a.catalog,
		Stats:      a.stats,
		Archive:    archive,
		StagingDir: cfg.UploadDir(),
		MaxUpload:  cfg.Ingest.MaxUploadBytes,
		Log:        log,
	})
	a.httpSrv = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	a.shutdown.OnShutdownStart(func() {
		log.Info("shutting down")
	})
	a.shutdown.RegisterCloser(closerFunc(func() error {
		closeLog()
		return nil
	}))
	a.shutdown.RegisterCloser(st)
	a.shutdown.RegisterHTTPServer(a.httpSrv)

	return a, nil
}

// BuildArchive constructs the raw-upload archive backend from
// configuration, or nil when archival is disabled. Shared by the server
// and the ingest CLI so both wire the same backends.
func BuildArchive(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	if !cfg.Ingest.ArchiveUploads {
		return nil, nil
	}

	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
		})
	default:
		return storage.NewLocalStorage(cfg.Storage.Path)
	}
}

// Run starts the HTTP listener and blocks until a shutdown signal.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.cfg.HTTP.Addr, "store", a.cfg.StorePath())
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		select {
		case err := <-errCh:
			a.log.Error("http server failed", "error", err)
			a.shutdown.Shutdown(context.Background())
		case <-a.shutdown.ShutdownCh():
		}
	}()

	if err := a.shutdown.ListenForSignals(ctx); err != nil {
		return fmt.Errorf("app: shutdown error: %w", err)
	}
	return nil
}

// Pipeline exposes the ingestion pipeline for command-line tools.
func (a *App) Pipeline() *ingest.Pipeline {
	return a.pipeline
}

// Executor exposes the query executor for command-line tools.
func (a *App) Executor() *executor.Executor {
	return a.executor
}

// Close releases resources without waiting for signals.
func (a *App) Close() error {
	return a.shutdown.Shutdown(context.Background())
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
