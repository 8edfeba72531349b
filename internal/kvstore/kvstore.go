// Package kvstore implements the logical key-value store: a tree of JSON
// values addressed by slash-separated paths, with realtime subscriptions,
// over a pluggable physical backend.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/observability"

	"github.com/google/uuid"
)

// Store is the logical key-value store.
type Store struct {
	backend physical.Backend
	metrics *observability.Metrics
	subs    *subscriptionManager
	closed  atomic.Bool
}

// New creates a Store over the given backend and starts its dispatch worker.
func New(backend physical.Backend, metrics *observability.Metrics, subCfg SubscriptionConfig) *Store {
	s := &Store{
		backend: backend,
		metrics: metrics,
	}

	var gauge func(int)
	if metrics != nil {
		gauge = func(delta int) { metrics.SubscriberGauge.Add(float64(delta)) }
	}
	s.subs = newSubscriptionManager(s.read, subCfg, gauge)
	return s
}

// Get returns the JSON value at path, or nil with no error when nothing is
// stored there. When no record exists at the exact path but direct children
// do, the children are assembled into a one-level object keyed by child
// segment.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}

	op, ctx := observability.StartOperation(ctx, s.metrics, "kvstore.get",
		attribute.String("path", path))
	value, err := s.read(ctx, path)
	op.End(err)
	return value, err
}

// read is Get without instrumentation, shared with the dispatch worker.
func (s *Store) read(ctx context.Context, path string) (json.RawMessage, error) {
	rec, err := s.backend.Get(ctx, path)
	if err == nil {
		return json.RawMessage(rec.Value), nil
	}
	if !errors.Is(err, physical.ErrNotFound) {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}

	children, err := s.backend.List(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", path, err)
	}
	if len(children) == 0 {
		return nil, nil
	}

	assembled := make(map[string]json.RawMessage, len(children))
	for _, child := range children {
		seg := child.Path[strings.LastIndexByte(child.Path, '/')+1:]
		assembled[seg] = json.RawMessage(child.Value)
	}
	out, err := json.Marshal(assembled)
	if err != nil {
		return nil, fmt.Errorf("assemble %q: %w", path, err)
	}
	return out, nil
}

// Set replaces the value at path.
func (s *Store) Set(ctx context.Context, path string, value json.RawMessage) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validatePath(path); err != nil {
		return err
	}

	op, ctx := observability.StartOperation(ctx, s.metrics, "kvstore.set",
		attribute.String("path", path))
	err := s.backend.Put(ctx, path, value)
	op.End(err)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}

	s.subs.Notify(path)
	return nil
}

// Update shallow-merges partial into the object stored at path. Missing or
// non-object current values are treated as empty objects.
func (s *Store) Update(ctx context.Context, path string, partial map[string]json.RawMessage) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validatePath(path); err != nil {
		return err
	}

	op, ctx := observability.StartOperation(ctx, s.metrics, "kvstore.update",
		attribute.String("path", path))
	err := s.update(ctx, path, partial)
	op.End(err)
	if err != nil {
		return err
	}

	s.subs.Notify(path)
	return nil
}

func (s *Store) update(ctx context.Context, path string, partial map[string]json.RawMessage) error {
	current := make(map[string]json.RawMessage)

	rec, err := s.backend.Get(ctx, path)
	if err != nil && !errors.Is(err, physical.ErrNotFound) {
		return fmt.Errorf("update %q: %w", path, err)
	}
	if err == nil {
		if uerr := json.Unmarshal(rec.Value, &current); uerr != nil {
			slog.WarnContext(ctx, "update replacing non-object value", "path", path)
			current = make(map[string]json.RawMessage)
		}
	}

	for k, v := range partial {
		current[k] = v
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	if err := s.backend.Put(ctx, path, merged); err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	return nil
}

// Push stores value under a generated unique child key of path and returns
// the key.
func (s *Store) Push(ctx context.Context, path string, value json.RawMessage) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if err := validatePath(path); err != nil {
		return "", err
	}

	key := uuid.NewString()
	child := path + "/" + key

	op, ctx := observability.StartOperation(ctx, s.metrics, "kvstore.push",
		attribute.String("path", path))
	err := s.backend.Put(ctx, child, value)
	op.End(err)
	if err != nil {
		return "", fmt.Errorf("push %q: %w", path, err)
	}

	s.subs.Notify(child)
	return key, nil
}

// Delete removes the value at path and everything below it. Deleting an
// absent path is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validatePath(path); err != nil {
		return err
	}

	op, ctx := observability.StartOperation(ctx, s.metrics, "kvstore.delete",
		attribute.String("path", path))
	err := s.backend.Delete(ctx, path)
	op.End(err)
	if err != nil && !errors.Is(err, physical.ErrNotFound) {
		return fmt.Errorf("delete %q: %w", path, err)
	}

	s.subs.Notify(path)
	return nil
}

// Subscribe watches path. The subscription emits the current value once,
// then the value at path after every write touching the path, a descendant,
// or an ancestor.
func (s *Store) Subscribe(ctx context.Context, path string, opts *SubscriptionOptions) (Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	return s.subs.Subscribe(ctx, path, opts)
}

// Stats reports backend statistics.
func (s *Store) Stats(ctx context.Context) (*physical.Stats, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.backend.Stats(ctx)
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.subs.Len()
}

// Close stops the subscription manager and closes the backend.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.subs.Close()
	return s.backend.Close()
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}
