package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quarrydb/quarry/internal/audit"
	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) RecordQuery(ctx context.Context, e audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) last(t *testing.T) audit.Entry {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		t.Fatal("no audit entries recorded")
	}
	return c.entries[len(c.entries)-1]
}

func newTestExecutor(t *testing.T) (*Executor, *store.Store, *captureRecorder) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rec := &captureRecorder{}
	exec := New(s, Config{Timeout: 10 * time.Second}, rec, observability.NewQueryStats())
	return exec, s, rec
}

func seedRows(t *testing.T, s *store.Store, n int) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Write().ExecContext(ctx, `CREATE TABLE items (id INTEGER, name TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for i := 1; i <= n; i++ {
		if _, err := s.Write().ExecContext(ctx, `INSERT INTO items (id, name) VALUES (?, ?)`, i, fmt.Sprintf("item_%d", i)); err != nil {
			t.Fatalf("failed to insert row %d: %v", i, err)
		}
	}
}

func TestExecuteBasicSelect(t *testing.T) {
	exec, s, rec := newTestExecutor(t)
	seedRows(t, s, 3)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "SELECT * FROM items ORDER BY id"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", result.TotalCount)
	}
	if len(result.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(result.Rows))
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" || result.Columns[1] != "name" {
		t.Errorf("Columns = %v, want [id name]", result.Columns)
	}
	if got := result.Rows[0]["name"]; got != "item_1" {
		t.Errorf("first row name = %v (%T), want item_1 as string", got, got)
	}

	e := rec.last(t)
	if !e.Success || e.RowCount != 3 || e.ActorID != "tester" {
		t.Errorf("audit entry = %+v, want success with 3 rows for tester", e)
	}
}

// Page/rows_per_page are translated to LIMIT/OFFSET; the total count
// reflects the whole result set, not the page.
func TestExecutePagination(t *testing.T) {
	exec, s, _ := newTestExecutor(t)
	seedRows(t, s, 25)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{
		Query:       "SELECT * FROM items ORDER BY id",
		Page:        2,
		RowsPerPage: 10,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.TotalCount != 25 {
		t.Errorf("TotalCount = %d, want 25", result.TotalCount)
	}
	if len(result.Rows) != 10 {
		t.Fatalf("page 2 rows = %d, want 10", len(result.Rows))
	}
	if id := result.Rows[0]["id"]; id != int64(11) {
		t.Errorf("first row of page 2 id = %v, want 11", id)
	}

	result, err = exec.Execute(context.Background(), "tester", types.QueryRequest{
		Query:       "SELECT * FROM items ORDER BY id",
		Page:        3,
		RowsPerPage: 10,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Rows) != 5 {
		t.Errorf("last page rows = %d, want 5", len(result.Rows))
	}
	if result.TotalCount != 25 {
		t.Errorf("TotalCount = %d, want 25", result.TotalCount)
	}
}

// A query with no LIMIT of its own is still bounded by the page size.
func TestExecuteUnboundedQueryIsPaged(t *testing.T) {
	exec, s, _ := newTestExecutor(t)
	seedRows(t, s, 1500)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "SELECT * FROM items"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Rows) != types.DefaultRowsPerPage {
		t.Errorf("rows = %d, want default page size %d", len(result.Rows), types.DefaultRowsPerPage)
	}
	if result.TotalCount != 1500 {
		t.Errorf("TotalCount = %d, want 1500", result.TotalCount)
	}
}

// A LIMIT already present in the query text stays valid and bounds the
// set the requested page is cut from.
func TestExecuteQueryWithOwnLimit(t *testing.T) {
	exec, s, _ := newTestExecutor(t)
	seedRows(t, s, 25)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{
		Query: "SELECT * FROM items ORDER BY id LIMIT 10",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Rows) != 10 || result.TotalCount != 10 {
		t.Errorf("result = %d rows total %d, want 10/10", len(result.Rows), result.TotalCount)
	}

	result, err = exec.Execute(context.Background(), "tester", types.QueryRequest{
		Query:       "SELECT * FROM items ORDER BY id LIMIT 10",
		Page:        2,
		RowsPerPage: 4,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Rows) != 4 || result.TotalCount != 10 {
		t.Fatalf("page 2 = %d rows total %d, want 4/10", len(result.Rows), result.TotalCount)
	}
	if id := result.Rows[0]["id"]; id != int64(5) {
		t.Errorf("first row of page 2 id = %v, want 5", id)
	}
}

func TestExecuteTrailingSemicolon(t *testing.T) {
	exec, s, _ := newTestExecutor(t)
	seedRows(t, s, 2)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "SELECT * FROM items;"})
	if err != nil {
		t.Fatalf("trailing semicolon should not fail: %v", err)
	}
	if result.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", result.TotalCount)
	}
}

func TestExecuteDeniedQuery(t *testing.T) {
	exec, _, rec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "DROP TABLE items"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if qerrors.GetCategory(err) != qerrors.ErrCategoryValidation {
		t.Errorf("category = %s, want VALIDATION", qerrors.GetCategory(err))
	}
	if result == nil {
		t.Fatal("result should be non-nil on failure")
	}

	e := rec.last(t)
	if e.Success {
		t.Error("audit entry for denied query marked success")
	}
	if e.Error == "" {
		t.Error("audit entry for denied query has empty error")
	}
}

func TestExecuteFriendlyErrors(t *testing.T) {
	exec, s, _ := newTestExecutor(t)
	seedRows(t, s, 1)

	cases := []struct {
		name  string
		query string
		code  string
		want  string
	}{
		{"missing table", "SELECT * FROM nope", qerrors.CodeTableNotFound, msgTableNotFound},
		{"missing column", "SELECT missing_col FROM items", qerrors.CodeColumnNotFound, msgColumnNotFound},
		{"syntax error", "SELECT FROM WHERE", qerrors.CodeSyntaxError, msgSyntaxError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := exec.Execute(context.Background(), "tester", types.QueryRequest{Query: tc.query})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := qerrors.GetCode(err); got != tc.code {
				t.Errorf("code = %s, want %s (err: %v)", got, tc.code, err)
			}
			if got := qerrors.UserMessage(err); got != tc.want {
				t.Errorf("user message = %q, want %q", got, tc.want)
			}
			if result == nil || result.ExecutionTimeMs < 0 {
				t.Error("failed execution should still carry timing")
			}
		})
	}
}

func TestExecuteStatsRecorded(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	stats := observability.NewQueryStats()
	exec := New(s, DefaultConfig(), audit.NopRecorder{}, stats)
	seedRows(t, s, 1)

	exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "SELECT * FROM items"})
	exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "DELETE FROM items"})
	exec.Execute(context.Background(), "tester", types.QueryRequest{Query: "SELECT * FROM ghosts"})

	snap := stats.Get()
	if snap.Total != 3 || snap.Succeeded != 1 || snap.Denied != 1 || snap.Failed != 1 {
		t.Errorf("stats = %+v, want total=3 succeeded=1 denied=1 failed=1", snap)
	}
}
