package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quarrydb/quarry/internal/catalog"
)

// CatalogHandler serves table metadata endpoints.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// ListTables handles GET /v1/tables.
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListTables(r.Context())
	if err != nil {
		writeQuarryError(w, GetRequestID(r.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
}

// Schema handles GET /v1/schema.
func (h *CatalogHandler) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.catalog.Schema(r.Context())
	if err != nil {
		writeQuarryError(w, GetRequestID(r.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schema": schema})
}

// TableSchema handles GET /v1/tables/{table}/schema.
func (h *CatalogHandler) TableSchema(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	cols, err := h.catalog.TableSchema(r.Context(), table)
	if err != nil {
		writeQuarryError(w, GetRequestID(r.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"table": table, "columns": cols})
}

// Sample handles GET /v1/tables/{table}/sample?limit=N.
func (h *CatalogHandler) Sample(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.catalog.Sample(r.Context(), table, limit)
	if err != nil {
		writeQuarryError(w, GetRequestID(r.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"table": table, "rows": rows})
}

// SampleQueries handles GET /v1/sample-queries.
func (h *CatalogHandler) SampleQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := h.catalog.SampleQueries(r.Context())
	if err != nil {
		writeQuarryError(w, GetRequestID(r.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"queries": queries})
}
