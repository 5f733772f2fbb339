// Package integration provides end-to-end tests for the Quarry system:
// HTTP upload through ingestion into the store, then queried back out
// through the API.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	apihttp "github.com/quarrydb/quarry/internal/api/http"
	"github.com/quarrydb/quarry/internal/audit"
	"github.com/quarrydb/quarry/internal/catalog"
	"github.com/quarrydb/quarry/internal/executor"
	"github.com/quarrydb/quarry/internal/ingest"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "quarry.db"), store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := observability.NewQueryStats()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Executor:   executor.New(s, executor.DefaultConfig(), audit.NewSlogRecorder(log), stats),
		Pipeline:   ingest.New(s, nil, log),
		Catalog:    catalog.New(s),
		Stats:      stats,
		StagingDir: t.TempDir(),
		MaxUpload:  32 << 20,
		Log:        log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, srv *httptest.Server, filename, content string, clearExisting bool) types.BatchResult {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if clearExisting {
		mw.WriteField("clear_existing", "true")
	}
	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/v1/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()

	var result types.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode upload response failed: %v", err)
	}
	return result
}

func query(t *testing.T, srv *httptest.Server, req types.QueryRequest) (types.QueryResult, int) {
	t.Helper()

	body, _ := json.Marshal(req)
	resp, err := http.Post(srv.URL+"/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer resp.Body.Close()

	var result types.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode query response failed: %v", err)
	}
	return result, resp.StatusCode
}

// Upload a patient billing file, then read it back with SQL: header
// cleaning, money conversion, date normalization, and pagination all in
// one pass through the public API.
func TestUploadThenQueryFlow(t *testing.T) {
	srv := newServer(t)

	csv := "Patient ID,DOB,Charge Amount\n" +
		"P1,1980-01-01,$100.00\n" +
		"P2,1990-05-05,$50.50\n"
	result := upload(t, srv, "patients.csv", csv, false)
	if !result.Success || result.TablesCreated != 1 {
		t.Fatalf("upload result = %+v, want one table", result)
	}

	qr, status := query(t, srv, types.QueryRequest{Query: "SELECT * FROM patients LIMIT 10"})
	if status != http.StatusOK {
		t.Fatalf("query status = %d, want 200", status)
	}
	if qr.TotalCount != 2 || len(qr.Rows) != 2 {
		t.Fatalf("query result = %+v, want 2 rows with total_count 2", qr)
	}

	// Charge_Amount arrives as integer cents through JSON.
	for _, row := range qr.Rows {
		switch row["Patient_ID"] {
		case "P1":
			if row["Charge_Amount"] != float64(10000) {
				t.Errorf("P1 Charge_Amount = %v, want 10000", row["Charge_Amount"])
			}
			if row["DOB"] != "1980-01-01" {
				t.Errorf("P1 DOB = %v, want 1980-01-01", row["DOB"])
			}
		case "P2":
			if row["Charge_Amount"] != float64(5050) {
				t.Errorf("P2 Charge_Amount = %v, want 5050", row["Charge_Amount"])
			}
		default:
			t.Errorf("unexpected Patient_ID %v", row["Patient_ID"])
		}
	}
}

func TestPaginationThroughAPI(t *testing.T) {
	srv := newServer(t)

	var buf bytes.Buffer
	buf.WriteString("id\n")
	for i := 1; i <= 25; i++ {
		buf.WriteString(strconv.Itoa(i) + "\n")
	}
	if result := upload(t, srv, "measurements.csv", buf.String(), false); !result.Success {
		t.Fatalf("upload failed: %+v", result)
	}

	qr, _ := query(t, srv, types.QueryRequest{
		Query:       "SELECT * FROM measurements ORDER BY id",
		Page:        2,
		RowsPerPage: 10,
	})
	if len(qr.Rows) != 10 || qr.TotalCount != 25 {
		t.Errorf("page 2 = %d rows total %d, want 10/25", len(qr.Rows), qr.TotalCount)
	}

	qr, _ = query(t, srv, types.QueryRequest{
		Query:       "SELECT * FROM measurements ORDER BY id",
		Page:        3,
		RowsPerPage: 10,
	})
	if len(qr.Rows) != 5 {
		t.Errorf("page 3 = %d rows, want 5", len(qr.Rows))
	}
}

func TestClearExistingThroughAPI(t *testing.T) {
	srv := newServer(t)

	if result := upload(t, srv, "legacy.csv", "id\n1\n", false); !result.Success {
		t.Fatalf("first upload failed: %+v", result)
	}
	if result := upload(t, srv, "fresh.csv", "id\n2\n", true); !result.Success {
		t.Fatalf("second upload failed: %+v", result)
	}

	_, status := query(t, srv, types.QueryRequest{Query: "SELECT * FROM legacy"})
	if status == http.StatusOK {
		t.Error("legacy table should be gone after clear_existing upload")
	}
	qr, status := query(t, srv, types.QueryRequest{Query: "SELECT * FROM fresh"})
	if status != http.StatusOK || qr.TotalCount != 1 {
		t.Errorf("fresh table query = status %d result %+v", status, qr)
	}
}
