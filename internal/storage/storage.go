// Package storage defines the filename-addressed store that holds uploaded images.
// The namespace is flat: every key is a bare filename, no directories.
// Swap implementations by changing the concrete type injected at startup.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no entry exists under the requested name.
var ErrNotFound = errors.New("object not found")

// Storage is the interface for storing and retrieving images by filename.
type Storage interface {
	// Put streams data into the store under name, replacing any existing entry.
	// size is the exact byte count, or -1 when unknown.
	Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error
	// Exists reports whether an entry is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// Get opens the entry stored under name. The caller must close Object.Content.
	Get(ctx context.Context, name string) (*Object, error)
	// Delete removes the entry stored under name.
	Delete(ctx context.Context, name string) error
	// List returns the names of all stored entries.
	List(ctx context.Context) ([]string, error)
}

// Object is an opened entry. Content also implements io.Seeker for both
// shipped backends, which lets handlers serve range requests.
type Object struct {
	Name        string
	Content     io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}
