// Package physical provides the physical storage backend interface for the
// key-value store.
package physical

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no record exists at the requested path.
	ErrNotFound = errors.New("record not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("backend closed")
)

// Record is a single stored value addressed by a slash-separated path.
type Record struct {
	Path      string
	Value     []byte
	UpdatedAt time.Time
}

// Stats contains storage statistics.
type Stats struct {
	Records     int64
	SizeBytes   int64
	BackendType string
}

// Backend is the physical storage interface for the key-value store.
// All implementations must be thread-safe.
//
// Paths form a tree: "siteConfig/hero" is a direct child of "siteConfig".
// Delete removes the record at path and every record below it. List returns
// the records exactly one level below path.
type Backend interface {
	Get(ctx context.Context, path string) (*Record, error)
	Put(ctx context.Context, path string, value []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, path string) ([]*Record, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// JoinPath appends seg below parent. A "" parent means the tree root, so
// the result is seg itself.
func JoinPath(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

// ChildSegment returns the first path segment of full below prefix, or ""
// if full does not sit strictly below prefix.
func ChildSegment(prefix, full string) string {
	if prefix != "" {
		if len(full) <= len(prefix) || full[:len(prefix)] != prefix || full[len(prefix)] != '/' {
			return ""
		}
		full = full[len(prefix)+1:]
	}
	if full == "" {
		return ""
	}
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			return full[:i]
		}
	}
	return full
}
