package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/quarrydb/quarry/internal/ingest"
)

// UploadHandler handles POST /v1/upload requests: multipart file uploads
// feeding the ingestion pipeline.
type UploadHandler struct {
	pipeline   *ingest.Pipeline
	stagingDir string
	maxBytes   int64
}

// NewUploadHandler creates a new upload handler. stagingDir receives the
// uploaded files before ingestion; maxBytes caps one request body.
func NewUploadHandler(p *ingest.Pipeline, stagingDir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{pipeline: p, stagingDir: stagingDir, maxBytes: maxBytes}
}

// ServeHTTP handles the upload HTTP request. Files are passed as one or
// more "files" form parts; "clear_existing=true" drops every table before
// the batch is processed.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:     fmt.Sprintf("invalid multipart request: %v", err),
			RequestID: requestID,
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:     "no files provided",
			RequestID: requestID,
		})
		return
	}

	clearExisting, _ := strconv.ParseBool(r.FormValue("clear_existing"))

	batchDir, err := os.MkdirTemp(h.stagingDir, "batch-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "could not stage upload",
			RequestID: requestID,
		})
		return
	}
	defer os.RemoveAll(batchDir)

	var paths []string
	for _, part := range parts {
		dest := filepath.Join(batchDir, filepath.Base(part.Filename))
		if err := saveUploadedFile(part, dest); err != nil {
			writeError(w, http.StatusInternalServerError, ErrorResponse{
				Error:     fmt.Sprintf("could not save %s", part.Filename),
				RequestID: requestID,
			})
			return
		}
		paths = append(paths, dest)
	}

	result, err := h.pipeline.ProcessBatch(r.Context(), paths, clearExisting)
	if err != nil {
		writeQuarryError(w, requestID, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func saveUploadedFile(part *multipart.FileHeader, dest string) error {
	src, err := part.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
