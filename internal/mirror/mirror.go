// Package mirror keeps an in-memory view of the site content synchronized
// with the key-value store: one batched initial read, then a realtime
// subscription per section so each write patches only its own slice.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/site"
)

// Mirror is a live local copy of the section tree and projects collection.
type Mirror struct {
	kv   *kvstore.Store
	auth *auth.Service

	mu       sync.RWMutex
	raw      map[string]json.RawMessage
	projects json.RawMessage
	loading  bool
	authed   bool

	subs       []kvstore.Subscription
	authCancel func()
	wg         sync.WaitGroup
	stop       chan struct{}
	started    bool
}

// New creates a Mirror. authSvc may be nil when no admin surface is wired.
func New(kv *kvstore.Store, authSvc *auth.Service) *Mirror {
	return &Mirror{
		kv:      kv,
		auth:    authSvc,
		raw:     make(map[string]json.RawMessage),
		loading: true,
		stop:    make(chan struct{}),
	}
}

// Start performs the initial batched read and registers the per-section
// subscriptions. Loading reports true until the initial read completes.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("mirror already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		return err
	}

	for _, name := range site.Sections {
		sub, err := m.kv.Subscribe(ctx, site.SectionPath(name), nil)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
		m.subs = append(m.subs, sub)

		m.wg.Add(1)
		go m.consumeSection(name, sub)
	}

	projectsSub, err := m.kv.Subscribe(ctx, site.ProjectsPath, nil)
	if err != nil {
		return fmt.Errorf("subscribe projects: %w", err)
	}
	m.subs = append(m.subs, projectsSub)
	m.wg.Add(1)
	go m.consumeProjects(projectsSub)

	if m.auth != nil {
		ch, cancel := m.auth.Watch()
		m.authCancel = cancel
		m.wg.Add(1)
		go m.consumeAuth(ch)
	}

	return nil
}

// consumeSection patches a single section slice; other sections are never
// touched by this goroutine.
func (m *Mirror) consumeSection(name string, sub kvstore.Subscription) {
	defer m.wg.Done()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			m.mu.Lock()
			m.raw[name] = ev.Value
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

func (m *Mirror) consumeProjects(sub kvstore.Subscription) {
	defer m.wg.Done()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			m.mu.Lock()
			m.projects = ev.Value
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

func (m *Mirror) consumeAuth(ch <-chan auth.State) {
	defer m.wg.Done()
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			m.mu.Lock()
			m.authed = st.Authenticated
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Refresh re-reads every section and the projects collection in one
// concurrent batch, replacing the local copy wholesale.
func (m *Mirror) Refresh(ctx context.Context) error {
	paths := make([]string, 0, len(site.Sections)+1)
	for _, name := range site.Sections {
		paths = append(paths, site.SectionPath(name))
	}
	paths = append(paths, site.ProjectsPath)

	results := make([]json.RawMessage, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results[i], errs[i] = m.kv.Get(ctx, path)
		}(i, path)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			m.mu.Lock()
			m.loading = false
			m.mu.Unlock()
			return fmt.Errorf("load %s: %w", paths[i], err)
		}
	}

	m.mu.Lock()
	for i, name := range site.Sections {
		m.raw[name] = results[i]
	}
	m.projects = results[len(results)-1]
	m.loading = false
	m.mu.Unlock()

	slog.InfoContext(ctx, "mirror refreshed", "sections", len(site.Sections))
	return nil
}

// Loading reports whether the initial batch read is still in flight.
func (m *Mirror) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Authenticated reports the mirrored admin auth state.
func (m *Mirror) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authed
}

// Raw returns the stored value of one section (nil when unset).
func (m *Mirror) Raw(section string) json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.raw[section]
}

// Snapshot returns the canonical typed view of the mirrored tree, with
// every missing value filled from the defaults.
func (m *Mirror) Snapshot() (site.Config, error) {
	m.mu.RLock()
	raw := make(map[string]json.RawMessage, len(m.raw))
	for k, v := range m.raw {
		raw[k] = v
	}
	m.mu.RUnlock()

	return site.Canonical(raw)
}

// Section returns the canonical typed value of one section.
func (m *Mirror) Section(name string) (any, error) {
	cfg, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	v, ok := cfg.Section(name)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", name)
	}
	return v, nil
}

// Projects returns the mirrored projects collection keyed by push key,
// sorted by title for stable output.
func (m *Mirror) Projects() ([]site.Project, error) {
	m.mu.RLock()
	raw := m.projects
	m.mu.RUnlock()

	if raw == nil {
		return nil, nil
	}
	var byKey map[string]site.Project
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	out := make([]site.Project, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Close cancels all subscriptions and waits for the consumers to exit.
func (m *Mirror) Close() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.stop)
	for _, sub := range m.subs {
		sub.Cancel()
	}
	if m.authCancel != nil {
		m.authCancel()
	}
	m.wg.Wait()
}
