package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage holds the blob backends that keep uploaded file bytes and the
// Writer that validates uploads before they reach a backend.

// ErrObjectNotFound is returned by Open when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size must be the exact number of bytes; backends reject short or long writes.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is a blob backend addressed by key. Keys are slash-separated paths
// that already include the storage root.
type Storage interface {
	// EnsureRoot prepares the backend (directory or bucket). Called once at start-up.
	EnsureRoot(ctx context.Context) error
	// Put writes an object under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Open returns the object's content. A missing object yields ErrObjectNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
