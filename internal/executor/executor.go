// Package executor runs validated read-only queries against a store with
// total-count wrapping and offset/limit pagination. Every invocation,
// success or failure, is timed, classified, fed to the audit collaborator,
// and recorded in the query stats tracker.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/quarrydb/quarry/internal/audit"
	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/internal/validator"
	"github.com/quarrydb/quarry/pkg/types"
)

// User-safe messages for mapped execution failures. The raw engine
// diagnostic is kept on the error chain for logs but never shown.
const (
	msgTableNotFound  = "Table not found. Check the schema for available tables."
	msgColumnNotFound = "Column not found. Check the table schema for available columns."
	msgSyntaxError    = "SQL syntax error. Please check your query syntax."
	msgTimeout        = "Query timed out waiting for the store. Please retry."
	msgGeneric        = "Query execution failed."
)

// Config holds executor configuration.
type Config struct {
	// Timeout bounds a single query execution, including the count wrap.
	// A query blocked by an in-progress ingestion fails with a retryable
	// timeout error once this elapses. Default: 60s.
	Timeout time.Duration
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{Timeout: 60 * time.Second}
}

// Executor validates and runs queries against one store.
type Executor struct {
	store   *store.Store
	timeout time.Duration
	audit   audit.Recorder
	stats   *observability.QueryStats
}

// New creates an executor. recorder and stats may not be nil; pass
// audit.NopRecorder and a fresh tracker when no collaborator is wired.
func New(s *store.Store, cfg Config, recorder audit.Recorder, stats *observability.QueryStats) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Executor{
		store:   s,
		timeout: cfg.Timeout,
		audit:   recorder,
		stats:   stats,
	}
}

// Execute validates req.Query and, if allowed, runs it with pagination.
//
// The returned QueryResult is never nil: on failure it carries the
// measured ExecutionTimeMs (and zero TotalCount) alongside the error, so
// callers and the audit layer can always record timing. actor identifies
// the caller for the audit entry; the executor does not interpret it.
func (e *Executor) Execute(ctx context.Context, actor string, req types.QueryRequest) (*types.QueryResult, error) {
	req.Normalize()
	start := time.Now()

	result := &types.QueryResult{
		Page:        req.Page,
		RowsPerPage: req.RowsPerPage,
	}

	finish := func(err error) (*types.QueryResult, error) {
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		e.record(ctx, actor, req.Query, result, err)
		return result, err
	}

	if verdict := validator.Validate(req.Query); !verdict.Allowed {
		return finish(verdict.Err())
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// A single trailing semicolon is legal input but would break the
	// count subquery wrap, so it is dropped before execution.
	query := strings.TrimRight(strings.TrimSpace(req.Query), "; \t\n")

	// Total count over the unmodified result shape, computed before paging
	// from the same query text.
	countQuery := fmt.Sprintf("SELECT COUNT(*) AS total_count FROM (%s) AS subquery", query)
	var totalCount int64
	if err := e.store.Read().QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return finish(classify(err))
	}

	// Paging wraps the query the same way the count does, so a LIMIT
	// already present in the text stays valid and bounds the result set
	// the page is cut from.
	pagedQuery := fmt.Sprintf("SELECT * FROM (%s) AS subquery LIMIT %d OFFSET %d",
		query, req.RowsPerPage, req.Offset())
	rows, err := e.store.Read().QueryContext(ctx, pagedQuery)
	if err != nil {
		return finish(classify(err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return finish(classify(err))
	}

	data := make([]map[string]interface{}, 0, req.RowsPerPage)
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return finish(classify(err))
		}
		rowObj := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			rowObj[col] = normalizeValue(values[i])
		}
		data = append(data, rowObj)
	}
	if err := rows.Err(); err != nil {
		return finish(classify(err))
	}

	result.Success = true
	result.Columns = columns
	result.Rows = data
	result.TotalCount = totalCount
	return finish(nil)
}

// record feeds the audit collaborator and the stats tracker. Runs on
// every exit path.
func (e *Executor) record(ctx context.Context, actor, query string, result *types.QueryResult, err error) {
	entry := audit.Entry{
		ActorID:         actor,
		Query:           query,
		ExecutionTimeMs: result.ExecutionTimeMs,
		RowCount:        len(result.Rows),
		Success:         err == nil,
		At:              time.Now(),
	}
	outcome := observability.OutcomeSuccess
	if err != nil {
		entry.Error = qerrors.UserMessage(err)
		switch qerrors.GetCategory(err) {
		case qerrors.ErrCategoryValidation:
			outcome = observability.OutcomeDenied
		case qerrors.ErrCategoryTimeout:
			outcome = observability.OutcomeTimeout
		default:
			outcome = observability.OutcomeFailure
		}
	}
	e.audit.RecordQuery(ctx, entry)
	e.stats.Record(outcome, result.ExecutionTimeMs)
}

// normalizeValue converts driver values into JSON-friendly types.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// classify maps engine errors into the small set of user-safe categories.
// The internal diagnostic stays on the chain as the cause.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return qerrors.NewTimeoutError(msgTimeout, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return qerrors.NewTimeoutError(msgTimeout, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"):
		return qerrors.NewTimeoutError(msgTimeout, err)
	case strings.Contains(msg, "no such table"):
		return qerrors.NewExecutionError(qerrors.CodeTableNotFound, msgTableNotFound, err)
	case strings.Contains(msg, "no such column"):
		return qerrors.NewExecutionError(qerrors.CodeColumnNotFound, msgColumnNotFound, err)
	case strings.Contains(msg, "syntax error"):
		return qerrors.NewExecutionError(qerrors.CodeSyntaxError, msgSyntaxError, err)
	default:
		return qerrors.NewExecutionError(qerrors.CodeExecutionFailed, msgGeneric, err)
	}
}
