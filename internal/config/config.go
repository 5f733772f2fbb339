// Package config provides unified configuration for the Quarry server and
// tools.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full Quarry configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP server configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Query execution configuration
	Query QueryConfig `json:"query" yaml:"query"`

	// Ingestion configuration
	Ingest IngestConfig `json:"ingest" yaml:"ingest"`

	// Storage configuration for raw-upload archival
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address for the API server
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// QueryConfig holds query execution configuration.
type QueryConfig struct {
	// Timeout bounds a single query execution
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// DefaultRowsPerPage is the page size applied when the caller omits one
	DefaultRowsPerPage int `json:"default_rows_per_page" yaml:"default_rows_per_page"`

	// BusyTimeout is the SQLite busy timeout for store connections
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// ReadPoolSize is the maximum number of concurrent read connections
	ReadPoolSize int `json:"read_pool_size" yaml:"read_pool_size"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	// MaxUploadBytes caps the size of one uploaded file (default 100MB)
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// ArchiveUploads controls whether raw uploads are archived to storage
	ArchiveUploads bool `json:"archive_uploads" yaml:"archive_uploads"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// SeqURL is the Seq ingestion endpoint; empty disables shipping
	SeqURL string `json:"seq_url" yaml:"seq_url"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/quarry",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Query: QueryConfig{
			Timeout:            60 * time.Second,
			DefaultRowsPerPage: 1000,
			BusyTimeout:        5 * time.Second,
			ReadPoolSize:       4,
		},
		Ingest: IngestConfig{
			MaxUploadBytes: 100 * 1024 * 1024,
			ArchiveUploads: true,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/quarry"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "archive")
	}
}

// StorePath returns the path to the live store database.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "quarry.db")
}

// UploadDir returns the staging directory for received uploads.
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive, got %s", c.Query.Timeout)
	}

	if c.Query.DefaultRowsPerPage <= 0 {
		return fmt.Errorf("query.default_rows_per_page must be positive, got %d", c.Query.DefaultRowsPerPage)
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_upload_bytes must be positive, got %d", c.Ingest.MaxUploadBytes)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// LogLevel returns the configured level as a slog.Level.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overrides configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("QUARRY_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("QUARRY_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("QUARRY_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Query.Timeout = d
		}
	}
	if v := os.Getenv("QUARRY_QUERY_DEFAULT_ROWS_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.DefaultRowsPerPage = n
		}
	}
	if v := os.Getenv("QUARRY_QUERY_READ_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.ReadPoolSize = n
		}
	}
	if v := os.Getenv("QUARRY_INGEST_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Ingest.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("QUARRY_INGEST_ARCHIVE_UPLOADS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Ingest.ArchiveUploads = b
		}
	}
	if v := os.Getenv("QUARRY_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("QUARRY_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("QUARRY_S3_BUCKET"); v != "" {
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("QUARRY_S3_REGION"); v != "" {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("QUARRY_S3_ENDPOINT"); v != "" {
		c.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("QUARRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("QUARRY_SEQ_URL"); v != "" {
		c.Logging.SeqURL = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.UploadDir()}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
