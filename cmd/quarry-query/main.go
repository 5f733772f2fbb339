// Package main implements the quarry-query tool: run one read-only SQL
// query against a store and print the paginated result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/quarrydb/quarry/internal/audit"
	"github.com/quarrydb/quarry/internal/config"
	"github.com/quarrydb/quarry/internal/executor"
	"github.com/quarrydb/quarry/internal/observability"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

func main() {
	_ = godotenv.Load()

	var (
		dataDir     string
		page        int
		rowsPerPage int
	)
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.IntVar(&page, "page", 1, "Result page (1-based)")
	flag.IntVar(&rowsPerPage, "rows", 0, "Rows per page (0 uses the configured default)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarry-query [options] \"SELECT ...\"\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	st, err := store.Open(cfg.StorePath(), store.Options{
		BusyTimeout:  cfg.Query.BusyTimeout,
		ReadPoolSize: cfg.Query.ReadPoolSize,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := executor.New(st,
		executor.Config{Timeout: cfg.Query.Timeout},
		audit.NewSlogRecorder(quiet),
		observability.NewQueryStats(),
	)

	if rowsPerPage == 0 {
		rowsPerPage = cfg.Query.DefaultRowsPerPage
	}
	result, err := exec.Execute(context.Background(), "cli", types.QueryRequest{
		Query:       flag.Arg(0),
		Page:        page,
		RowsPerPage: rowsPerPage,
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(result.Columns)
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			if row[col] == nil {
				cells[i] = ""
				continue
			}
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Printf("\n%d of %d rows (page %d, %d ms)\n",
		len(result.Rows), result.TotalCount, result.Page, result.ExecutionTimeMs)
}
