package mirror

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/kvstore/physical/memory"
	"github.com/blumotif/folio/internal/observability"
	"github.com/blumotif/folio/internal/site"
)

func newTestMirror(t *testing.T) (*Mirror, *kvstore.Store) {
	t.Helper()
	kv := kvstore.New(memory.New(), observability.NewMetrics(), kvstore.SubscriptionConfig{})
	t.Cleanup(func() { kv.Close() })

	m := New(kv, nil)
	t.Cleanup(m.Close)
	return m, kv
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartLoadsExistingContent(t *testing.T) {
	m, kv := newTestMirror(t)
	ctx := context.Background()

	_ = kv.Set(ctx, site.SectionPath("hero"), json.RawMessage(`{"title":"Stored"}`))

	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Loading() {
		t.Error("still loading after Start")
	}

	cfg, err := m.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cfg.Hero.Title != "Stored" {
		t.Errorf("hero title = %q", cfg.Hero.Title)
	}
	// Unsaved sections come from defaults.
	if cfg.Contact.Email == "" {
		t.Error("contact section not defaulted")
	}
}

func TestWritePatchesOnlyItsSection(t *testing.T) {
	m, kv := newTestMirror(t)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = kv.Set(ctx, site.SectionPath("footer"), json.RawMessage(`{"copyright":"new"}`))

	waitFor(t, func() bool {
		cfg, _ := m.Snapshot()
		return cfg.Footer.Copyright == "new"
	}, "footer update never reached the mirror")

	cfg, _ := m.Snapshot()
	if cfg.Hero.Title != site.Defaults().Hero.Title {
		t.Error("hero changed by a footer write")
	}
}

func TestProjectsCollection(t *testing.T) {
	m, kv := newTestMirror(t)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	raw, _ := json.Marshal(site.Project{Title: "Thing", Category: "Web"})
	if _, err := kv.Push(ctx, site.ProjectsPath, raw); err != nil {
		t.Fatalf("push: %v", err)
	}

	waitFor(t, func() bool {
		ps, _ := m.Projects()
		return len(ps) == 1
	}, "project never reached the mirror")

	ps, err := m.Projects()
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if ps[0].Title != "Thing" {
		t.Errorf("project = %+v", ps[0])
	}
}

func TestAuthStateMirrored(t *testing.T) {
	kv := kvstore.New(memory.New(), observability.NewMetrics(), kvstore.SubscriptionConfig{})
	t.Cleanup(func() { kv.Close() })

	hash, _ := auth.HashPassword("pw")
	authSvc := auth.New(hash, time.Hour)

	m := New(kv, authSvc)
	t.Cleanup(m.Close)

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Authenticated() {
		t.Error("authenticated before login")
	}

	sess, err := authSvc.Login(ctx, "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	waitFor(t, m.Authenticated, "login never reached the mirror")

	authSvc.Logout(ctx, sess.Token)
	waitFor(t, func() bool { return !m.Authenticated() }, "logout never reached the mirror")
}

func TestRefreshPicksUpDirectWrites(t *testing.T) {
	m, kv := newTestMirror(t)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = kv.Set(ctx, site.SectionPath("seo"), json.RawMessage(`{"title":"Refreshed"}`))
	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	cfg, _ := m.Snapshot()
	if cfg.SEO.Title != "Refreshed" {
		t.Errorf("seo title = %q", cfg.SEO.Title)
	}
}

func TestSectionTyped(t *testing.T) {
	m, _ := newTestMirror(t)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	v, err := m.Section("theme")
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	theme, ok := v.(site.Theme)
	if !ok {
		t.Fatalf("section type = %T", v)
	}
	if theme.PrimaryColor == "" {
		t.Error("theme not defaulted")
	}

	if _, err := m.Section("bogus"); err == nil {
		t.Error("expected error for unknown section")
	}
}
