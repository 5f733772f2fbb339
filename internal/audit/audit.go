// Package audit defines the query audit collaborator consumed by the
// executor. The core does not own audit storage; it only guarantees that
// every executed query, success or failure, is handed to a Recorder with
// enough data to log it.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Entry describes one query execution for the audit log.
type Entry struct {
	ActorID         string
	Query           string
	ExecutionTimeMs int64
	RowCount        int
	Success         bool
	Error           string
	At              time.Time
}

// Recorder receives one Entry per executed query. Implementations are
// owned outside the core; recording must not fail the query itself, so
// the interface returns nothing.
type Recorder interface {
	RecordQuery(ctx context.Context, e Entry)
}

// SlogRecorder writes audit entries to a structured logger. It is the
// default collaborator when no external audit sink is wired in.
type SlogRecorder struct {
	log *slog.Logger
}

// NewSlogRecorder creates a recorder backed by the given logger.
func NewSlogRecorder(log *slog.Logger) *SlogRecorder {
	return &SlogRecorder{log: log}
}

// RecordQuery logs the entry at info level.
func (r *SlogRecorder) RecordQuery(ctx context.Context, e Entry) {
	r.log.InfoContext(ctx, "query executed",
		"actor", e.ActorID,
		"query", e.Query,
		"execution_time_ms", e.ExecutionTimeMs,
		"rows", e.RowCount,
		"success", e.Success,
		"error", e.Error,
	)
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) RecordQuery(ctx context.Context, e Entry) {}
