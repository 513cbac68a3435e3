// Package filestore abstracts the object storage that holds attachment bytes.
//
// Implementations live in sub-packages: miniowr for MinIO/S3 compatible
// servers and memfs for tests and local runs.
package filestore

import (
	"context"
	"io"
	"time"
)

// FileStore stores opaque objects addressed by slash separated paths.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Put stores size bytes read from r at path, replacing any existing object.
	// A negative size means unknown.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (*FileInfo, error)

	// Get opens the object at path. The caller must close File.Content.
	// Returns an error with code CodeFileNotFound when nothing is stored there.
	Get(ctx context.Context, path string) (*File, error)

	// Delete removes the object at path. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns a URL granting read access to path for the given duration.
	URL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// File is a stored object together with its metadata.
type File struct {
	Content io.ReadCloser
	Info    FileInfo
}

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}
