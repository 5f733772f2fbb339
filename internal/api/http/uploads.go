package http

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/golang/snappy"

	"github.com/quarrydb/quarry/internal/storage"
)

// uploadKeyPrefix mirrors the key layout the ingestion pipeline archives
// under: uploads/{batch}/{file}.sz.
const uploadKeyPrefix = "uploads/"

// ArchiveHandler serves archived raw uploads: batch listing, replay
// download, and pruning. Every endpoint answers 404 when archival is
// disabled.
type ArchiveHandler struct {
	archive storage.ObjectStorage
}

// NewArchiveHandler creates an archive handler. archive may be nil when
// archival is disabled.
func NewArchiveHandler(archive storage.ObjectStorage) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

func (h *ArchiveHandler) disabled(w http.ResponseWriter, r *http.Request) bool {
	if h.archive != nil {
		return false
	}
	writeError(w, http.StatusNotFound, ErrorResponse{
		Error:     "upload archival is disabled",
		RequestID: GetRequestID(r.Context()),
	})
	return true
}

// List handles GET /v1/uploads: every archived upload key.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}

	keys, err := h.archive.List(r.Context(), uploadKeyPrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not list archived uploads",
			RequestID: GetRequestID(r.Context()),
		})
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"uploads": keys})
}

// Download handles GET /v1/uploads/{batch}/{file}: replays the original
// file bytes of one archived upload.
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}
	requestID := GetRequestID(r.Context())

	batch := chi.URLParam(r, "batch")
	file := chi.URLParam(r, "file")
	key := path.Join(uploadKeyPrefix, batch, file) + ".sz"

	ok, err := h.archive.Exists(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not check archived upload",
			RequestID: requestID,
		})
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, ErrorResponse{
			Error:     fmt.Sprintf("no archived upload %s in batch %s", file, batch),
			RequestID: requestID,
		})
		return
	}

	rc, err := h.archive.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not read archived upload",
			RequestID: requestID,
		})
		return
	}
	defer rc.Close()

	compressed, err := io.ReadAll(rc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not read archived upload",
			RequestID: requestID,
		})
		return
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "archived upload is corrupt",
			RequestID: requestID,
		})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteBatch handles DELETE /v1/uploads/{batch}: prunes every archived
// file of one batch.
func (h *ArchiveHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}
	requestID := GetRequestID(r.Context())

	batch := chi.URLParam(r, "batch")
	keys, err := h.archive.List(r.Context(), path.Join(uploadKeyPrefix, batch)+"/")
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not list archived uploads",
			RequestID: requestID,
		})
		return
	}

	for _, key := range keys {
		if err := h.archive.Delete(r.Context(), key); err != nil {
			writeError(w, http.StatusInternalServerError, ErrorResponse{
				Error:     "could not delete archived upload",
				RequestID: requestID,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": len(keys)})
}
