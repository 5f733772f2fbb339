// Package storage provides the object storage abstraction used to archive
// raw uploads. Implementations include S3 and the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts object storage. Keys are slash-separated paths
// relative to the configured bucket or base directory.
type ObjectStorage interface {
	// Put writes the contents of r to the given key, replacing any
	// existing object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object at key for reading. Returns ErrObjectNotFound
	// if the key does not exist. The caller closes the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
