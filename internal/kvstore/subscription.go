package kvstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	defaultBufferSize = 16
	defaultIntakeSize = 4096
)

// Event is a snapshot of the value at a subscribed path after a write.
type Event struct {
	Path  string
	Value json.RawMessage
}

// SubscriptionConfig configures the subscription manager.
type SubscriptionConfig struct {
	IntakeBufferSize int // Size of the write intake channel. Default 4096.
}

// SubscriptionOptions configures a single subscription.
type SubscriptionOptions struct {
	BufferSize int // Event channel buffer size. Default 16.
}

// Subscription is an active watch on a path.
type Subscription interface {
	ID() string
	Events() <-chan Event
	Cancel()
}

type subscription struct {
	id      string
	path    string
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Int64

	// mu serializes sends against the close so the dispatch worker can
	// never send on a closed channel.
	mu     sync.Mutex
	events chan Event
	closed bool
}

func newSubscription(ctx context.Context, path string, opts SubscriptionOptions) *subscription {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		id:     uuid.NewString(),
		path:   path,
		events: make(chan Event, opts.BufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		close(s.done)
	}()

	return s
}

func (s *subscription) ID() string            { return s.id }
func (s *subscription) Events() <-chan Event  { return s.events }
func (s *subscription) Cancel()               { s.cancel() }

// valueReader fetches the current value at a path for dispatch.
type valueReader func(ctx context.Context, path string) (json.RawMessage, error)

type subscriptionManager struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool

	read   valueReader
	intake chan string
	stop   chan struct{}
	wg     sync.WaitGroup
	gauge  func(delta int)
}

// newSubscriptionManager starts a single dispatch worker so subscribers see
// events in write order.
func newSubscriptionManager(read valueReader, cfg SubscriptionConfig, gauge func(delta int)) *subscriptionManager {
	if cfg.IntakeBufferSize <= 0 {
		cfg.IntakeBufferSize = defaultIntakeSize
	}
	if gauge == nil {
		gauge = func(int) {}
	}

	m := &subscriptionManager{
		subs:   make(map[string]*subscription),
		read:   read,
		intake: make(chan string, cfg.IntakeBufferSize),
		stop:   make(chan struct{}),
		gauge:  gauge,
	}

	m.wg.Add(1)
	go m.dispatchWorker()

	return m
}

func (m *subscriptionManager) dispatchWorker() {
	defer m.wg.Done()
	for {
		select {
		case path := <-m.intake:
			m.dispatch(path)
		case <-m.stop:
			return
		}
	}
}

// dispatch re-reads each affected subscription's path and fans the snapshot
// out. A write affects a subscription when the written path is the
// subscribed path, a descendant of it, or an ancestor of it.
func (m *subscriptionManager) dispatch(written string) {
	m.mu.RLock()
	var affected []*subscription
	for _, sub := range m.subs {
		if pathsRelated(sub.path, written) {
			affected = append(affected, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range affected {
		value, err := m.read(context.Background(), sub.path)
		if err != nil {
			slog.Warn("subscription read failed",
				"subscription_id", sub.id, "path", sub.path, "error", err)
			continue
		}
		m.deliver(sub, Event{Path: sub.path, Value: value})
	}
}

func (m *subscriptionManager) deliver(sub *subscription, ev Event) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	select {
	case sub.events <- ev:
		sub.mu.Unlock()
	default:
		sub.mu.Unlock()
		drops := sub.dropped.Add(1)
		slog.Warn("subscription buffer full, event dropped",
			"subscription_id", sub.id, "path", sub.path, "drops", drops)
	}
}

// Subscribe registers a watch on path and emits the current value once
// before any write-driven events.
func (m *subscriptionManager) Subscribe(ctx context.Context, path string, opts *SubscriptionOptions) (Subscription, error) {
	if opts == nil {
		opts = &SubscriptionOptions{}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrSubscriptionClosed
	}
	sub := newSubscription(ctx, path, *opts)
	m.subs[sub.id] = sub
	active := len(m.subs)
	m.mu.Unlock()

	m.gauge(1)
	slog.InfoContext(ctx, "subscription registered",
		"subscription_id", sub.id, "path", path, "active_subscriptions", active)

	// Initial emission. The buffer is freshly allocated so this never blocks.
	value, err := m.read(ctx, path)
	if err != nil {
		slog.Warn("initial subscription read failed",
			"subscription_id", sub.id, "path", path, "error", err)
	} else {
		m.deliver(sub, Event{Path: path, Value: value})
	}

	go func() {
		<-sub.done
		m.mu.Lock()
		delete(m.subs, sub.id)
		remaining := len(m.subs)
		m.mu.Unlock()
		m.gauge(-1)
		slog.Info("subscription removed",
			"subscription_id", sub.id, "remaining_subscriptions", remaining)
	}()

	return sub, nil
}

// Notify enqueues a written path for async dispatch. Non-blocking: if the
// intake buffer is full the notification is dropped with a warning.
func (m *subscriptionManager) Notify(path string) {
	select {
	case m.intake <- path:
	default:
		slog.Warn("subscription intake buffer full, notification dropped", "path", path)
	}
}

func (m *subscriptionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, sub := range m.subs {
		sub.cancel()
	}
	m.subs = map[string]*subscription{}
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()
}

func (m *subscriptionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// pathsRelated reports whether one path is equal to or an ancestor of the
// other, on segment boundaries.
func pathsRelated(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}
