// Package store manages the live SQLite store that ingestion writes and
// queries read. A Store is an explicit handle passed into every component;
// nothing in the system assumes a process-wide singleton, so multiple
// isolated stores can coexist in one process.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	qerrors "github.com/quarrydb/quarry/internal/errors"
)

// Store wraps the SQLite database backing one data sandbox.
//
// Writes go through a single connection; reads go through a small pool.
// Ingestion performs destructive drop/recreate DDL and must hold the
// store's replace lock for the duration of a batch; queries do not take
// the lock and instead rely on the busy timeout to fail with a retryable
// error while a replace is in progress.
type Store struct {
	db     *sql.DB // write connection (single writer)
	readDB *sql.DB // read connection pool
	path   string

	// replaceMu serializes ingestion batches against each other. It is the
	// Active -> Replacing -> Active' transition guard for table replacement.
	replaceMu sync.Mutex
}

// Options configures how a store is opened.
type Options struct {
	// BusyTimeout is the SQLite busy timeout applied to all connections.
	// A query that waits on an in-progress ingestion longer than this
	// fails with a lock error rather than hanging. Default: 5s.
	BusyTimeout time.Duration

	// ReadPoolSize is the maximum number of concurrent read connections.
	// Default: 4.
	ReadPoolSize int
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		BusyTimeout:  5 * time.Second,
		ReadPoolSize: 4,
	}
}

// Open opens (creating if necessary) the SQLite store at path.
func Open(path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.ReadPoolSize <= 0 {
		opts.ReadPoolSize = 4
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	readDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(opts.ReadPoolSize)
	readDB.SetMaxIdleConns(opts.ReadPoolSize)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	// Touch the file so a bad path fails at open time, not first use.
	if err := db.Ping(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}

	return &Store{db: db, readDB: readDB, path: path}, nil
}

// Read returns the read connection pool.
func (s *Store) Read() *sql.DB {
	return s.readDB
}

// Write returns the single-writer connection.
func (s *Store) Write() *sql.DB {
	return s.db
}

// Path returns the filesystem path of the store.
func (s *Store) Path() string {
	return s.path
}

// LockReplace acquires the exclusive replace lock and returns the release
// function. Every ingestion batch runs inside this lock.
func (s *Store) LockReplace() func() {
	s.replaceMu.Lock()
	return s.replaceMu.Unlock
}

// TableNames returns the names of all user tables, sorted, excluding
// SQLite internal tables.
func (s *Store) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to iterate tables: %w", err)
	}
	return names, nil
}

// HasTable reports whether the named user table exists.
func (s *Store) HasTable(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: failed to check table: %w", err)
	}
	return true, nil
}

// Clear drops every user table in the store. Callers must hold the
// replace lock.
func (s *Store) Clear(ctx context.Context) error {
	names, err := s.TableNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
			return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
				fmt.Sprintf("failed to drop table %s", name), err)
		}
	}
	return nil
}

// Close closes both database handles.
func (s *Store) Close() error {
	rerr := s.readDB.Close()
	werr := s.db.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
