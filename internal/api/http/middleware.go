// Package http provides the HTTP API for the Quarry system.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	qerrors "github.com/quarrydb/quarry/internal/errors"
)

// Context keys for request metadata.
type contextKey string

const (
	// requestIDKey is the context key for the request ID.
	requestIDKey contextKey = "request_id"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// GetRequestID returns the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDMiddleware adds a unique request_id to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r.Context())
					log.Error("handler panic", "request_id", requestID, "panic", err)
					writeError(w, http.StatusInternalServerError,
						ErrorResponse{Error: "internal server error", RequestID: requestID})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	writeJSON(w, statusCode, resp)
}

// writeQuarryError maps a classified error to an HTTP response. The body
// carries only the user-safe message, never the internal cause.
func writeQuarryError(w http.ResponseWriter, requestID string, err error) {
	resp := ErrorResponse{
		Error:     qerrors.UserMessage(err),
		Code:      qerrors.GetCode(err),
		Retryable: qerrors.IsRetryable(err),
		RequestID: requestID,
	}
	writeError(w, statusForError(err), resp)
}

// statusForError maps error categories to HTTP status codes.
func statusForError(err error) int {
	switch qerrors.GetCategory(err) {
	case qerrors.ErrCategoryValidation, qerrors.ErrCategoryExecution, qerrors.ErrCategoryIngestion:
		return http.StatusBadRequest
	case qerrors.ErrCategoryTimeout:
		return http.StatusServiceUnavailable
	case qerrors.ErrCategoryCatalog:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
