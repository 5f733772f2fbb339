// Package main implements the quarry-ingest tool: load tabular files or
// archives into a store from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/quarrydb/quarry/internal/app"
	"github.com/quarrydb/quarry/internal/config"
	"github.com/quarrydb/quarry/internal/ingest"
	"github.com/quarrydb/quarry/internal/logging"
	"github.com/quarrydb/quarry/internal/store"
)

func main() {
	_ = godotenv.Load()

	var (
		dataDir string
		clear   bool
	)
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.BoolVar(&clear, "clear", false, "Drop all existing tables before ingesting")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarry-ingest [options] FILE...\n\n")
		fmt.Fprintf(os.Stderr, "Ingest CSV/TSV/TXT files or zip archives into a Quarry store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
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
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to prepare directories: %v", err)
	}

	logger, closeLog := logging.Setup(cfg.Logging.SeqURL, cfg.LogLevel())
	defer closeLog()

	st, err := store.Open(cfg.StorePath(), store.Options{
		BusyTimeout:  cfg.Query.BusyTimeout,
		ReadPoolSize: cfg.Query.ReadPoolSize,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	archive, err := app.BuildArchive(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open archive storage: %v", err)
	}

	pipeline := ingest.New(st, archive, logger)
	result, err := pipeline.ProcessBatch(context.Background(), flag.Args(), clear)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Table", "Rows", "Status"})
	for _, fr := range result.Files {
		status := "ok"
		if !fr.Success {
			status = fr.Error
		}
		table.Append([]string{fr.Filename, fr.TableName, fmt.Sprintf("%d", fr.RowsImported), status})
	}
	table.Render()

	fmt.Printf("\n%s (batch %s)\n", result.Message, result.BatchID)
	if !result.Success {
		os.Exit(1)
	}
}
