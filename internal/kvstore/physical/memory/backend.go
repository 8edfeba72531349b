// Package memory provides an in-memory key-value backend for testing and
// ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blumotif/folio/internal/kvstore/physical"
)

func init() {
	physical.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default configuration for the memory backend.
func Defaults() map[string]string {
	return map[string]string{}
}

// NewFactory creates a new memory backend from a configuration map.
func NewFactory(_ context.Context, _ map[string]string) (physical.Backend, error) {
	return New(), nil
}

// Backend is an in-memory implementation of physical.Backend.
type Backend struct {
	mu      sync.RWMutex
	records map[string]*physical.Record
	closed  atomic.Bool
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{records: make(map[string]*physical.Record)}
}

func (b *Backend) Get(_ context.Context, path string) (*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[path]
	if !ok {
		return nil, physical.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (b *Backend) Put(_ context.Context, path string, value []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	v := make([]byte, len(value))
	copy(v, value)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[path] = &physical.Record{
		Path:      path,
		Value:     v,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, path string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, path)
	prefix := path + "/"
	for p := range b.records {
		if strings.HasPrefix(p, prefix) {
			delete(b.records, p)
		}
	}
	return nil
}

func (b *Backend) List(_ context.Context, path string) ([]*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*physical.Record
	for p, rec := range b.records {
		if seg := physical.ChildSegment(path, p); seg != "" && p == physical.JoinPath(path, seg) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *Backend) Stats(_ context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var size int64
	for _, rec := range b.records {
		size += int64(len(rec.Value))
	}
	return &physical.Stats{
		Records:     int64(len(b.records)),
		SizeBytes:   size,
		BackendType: "memory",
	}, nil
}

func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

func copyRecord(rec *physical.Record) *physical.Record {
	v := make([]byte, len(rec.Value))
	copy(v, rec.Value)
	return &physical.Record{Path: rec.Path, Value: v, UpdatedAt: rec.UpdatedAt}
}
