// Package main implements the quarry server binary: HTTP API over one
// SQLite-backed data sandbox.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/quarrydb/quarry/internal/app"
	"github.com/quarrydb/quarry/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	var (
		configFile  string
		dataDir     string
		httpAddr    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "addr", "", "HTTP listen address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quarry - upload tabular data, query it with read-only SQL\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quarry [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quarry --data-dir /data/quarry\n")
		fmt.Fprintf(os.Stderr, "  quarry --config /etc/quarry/config.yaml --addr :9000\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_DATA_DIR      Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_HTTP_ADDR     HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_STORAGE_TYPE  Archive storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  QUARRY_SEQ_URL       Seq log shipping endpoint\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("quarry version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir, httpAddr)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

// loadConfig merges file, environment, and flag configuration, in that
// order of increasing precedence.
func loadConfig(configFile, dataDir, httpAddr string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.LoadFromEnv()

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
