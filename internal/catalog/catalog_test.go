package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

func newTestCatalog(t *testing.T) (*Catalog, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func seedTables(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE patients (Patient_ID TEXT, DOB TEXT, Charge_Amount INTEGER)`,
		`INSERT INTO patients VALUES ('P1', '1980-01-01', 10000)`,
		`INSERT INTO patients VALUES ('P2', '1990-05-05', 5050)`,
		`CREATE TABLE visits (Visit_ID INTEGER, Patient_ID TEXT, Score REAL)`,
		`INSERT INTO visits VALUES (1, 'P1', 0.5)`,
	}
	for _, stmt := range stmts {
		if _, err := s.Write().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestListTables(t *testing.T) {
	c, s := newTestCatalog(t)
	seedTables(t, s)

	tables, err := c.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	// Sorted by name: patients, visits.
	if tables[0].Name != "patients" || tables[0].RowCount != 2 {
		t.Errorf("tables[0] = %+v, want patients with 2 rows", tables[0])
	}
	if tables[1].Name != "visits" || tables[1].RowCount != 1 {
		t.Errorf("tables[1] = %+v, want visits with 1 row", tables[1])
	}
}

func TestSchema(t *testing.T) {
	c, s := newTestCatalog(t)
	seedTables(t, s)

	schema, err := c.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}

	cols, ok := schema["patients"]
	if !ok {
		t.Fatal("patients missing from schema")
	}
	want := []types.Column{
		{Name: "Patient_ID", Type: "TEXT", Nullable: true},
		{Name: "DOB", Type: "TEXT", Nullable: true},
		{Name: "Charge_Amount", Type: "INTEGER", Nullable: true},
	}
	if len(cols) != len(want) {
		t.Fatalf("patients columns = %d, want %d", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, cols[i], want[i])
		}
	}
}

func TestSample(t *testing.T) {
	c, s := newTestCatalog(t)
	seedTables(t, s)
	ctx := context.Background()

	rows, err := c.Sample(ctx, "patients", 1)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("sample rows = %d, want 1", len(rows))
	}
	if rows[0]["Patient_ID"] != "P1" {
		t.Errorf("Patient_ID = %v, want P1", rows[0]["Patient_ID"])
	}
}

func TestSampleDefaultLimit(t *testing.T) {
	c, s := newTestCatalog(t)
	ctx := context.Background()

	if _, err := s.Write().ExecContext(ctx, `CREATE TABLE readings (n INTEGER)`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if _, err := s.Write().ExecContext(ctx, `INSERT INTO readings VALUES (?)`, i); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	rows, err := c.Sample(ctx, "readings", 0)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(rows) != defaultSampleRows {
		t.Fatalf("sample rows = %d, want %d", len(rows), defaultSampleRows)
	}
}

func TestSampleUnknownTable(t *testing.T) {
	c, _ := newTestCatalog(t)

	_, err := c.Sample(context.Background(), "nope; DROP TABLE x", 5)
	if err == nil {
		t.Fatal("expected unknown-table error")
	}
	var qe *qerrors.QuarryError
	if !errors.As(err, &qe) || qe.Code != qerrors.CodeUnknownTable {
		t.Errorf("err = %v, want UNKNOWN_TABLE", err)
	}
}

func TestSampleQueries(t *testing.T) {
	c, s := newTestCatalog(t)
	seedTables(t, s)

	queries, err := c.SampleQueries(context.Background())
	if err != nil {
		t.Fatalf("SampleQueries failed: %v", err)
	}
	if len(queries) == 0 {
		t.Fatal("expected generated queries")
	}

	var hasBasic, hasAggregate, hasJoin bool
	for _, q := range queries {
		switch {
		case strings.HasPrefix(q, `SELECT * FROM "patients" LIMIT`):
			hasBasic = true
		case strings.Contains(q, "AVG("):
			hasAggregate = true
		case strings.Contains(q, "JOIN"):
			hasJoin = true
		}
	}
	if !hasBasic || !hasAggregate || !hasJoin {
		t.Errorf("queries missing variants (basic=%v aggregate=%v join=%v): %v",
			hasBasic, hasAggregate, hasJoin, queries)
	}

	// Every generated query must itself be runnable.
	for _, q := range queries {
		rows, err := s.Read().QueryContext(context.Background(), q)
		if err != nil {
			t.Errorf("generated query %q failed: %v", q, err)
			continue
		}
		rows.Close()
	}
}

func TestEmptyCatalog(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	tables, err := c.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("tables = %v, want empty", tables)
	}

	queries, err := c.SampleQueries(ctx)
	if err != nil {
		t.Fatalf("SampleQueries failed: %v", err)
	}
	if len(queries) != 0 {
		t.Errorf("queries = %v, want empty", queries)
	}
}
