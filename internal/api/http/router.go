package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quarrydb/quarry/internal/catalog"
	"github.com/quarrydb/quarry/internal/executor"
	"github.com/quarrydb/quarry/internal/ingest"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/storage"
)

// RouterDeps bundles the collaborators the API serves.
type RouterDeps struct {
	Executor   *executor.Executor
	Pipeline   *ingest.Pipeline
	Catalog    *catalog.Catalog
	Stats      *observability.QueryStats
	Archive    storage.ObjectStorage // nil when archival is disabled
	StagingDir string
	MaxUpload  int64
	Log        *slog.Logger
}

// NewRouter builds the API router with the standard middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(deps.Log))
	r.Use(LoggingMiddleware(deps.Log))

	r.Get("/healthz", HealthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", NewQueryHandler(deps.Executor))
		r.Method(http.MethodPost, "/upload",
			NewUploadHandler(deps.Pipeline, deps.StagingDir, deps.MaxUpload))

		ch := NewCatalogHandler(deps.Catalog)
		r.Get("/tables", ch.ListTables)
		r.Get("/schema", ch.Schema)
		r.Get("/tables/{table}/schema", ch.TableSchema)
		r.Get("/tables/{table}/sample", ch.Sample)
		r.Get("/sample-queries", ch.SampleQueries)

		ah := NewArchiveHandler(deps.Archive)
		r.Get("/uploads", ah.List)
		r.Get("/uploads/{batch}/{file}", ah.Download)
		r.Delete("/uploads/{batch}", ah.DeleteBatch)

		r.Method(http.MethodGet, "/stats", NewStatsHandler(deps.Stats))
	})

	return r
}
