package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/blumotif/folio/internal/kvstore/physical"
)

func TestPutGet(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	if err := b.Put(ctx, "siteConfig/hero", []byte(`{"name":"Ada"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := b.Get(ctx, "siteConfig/hero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(rec.Value) != `{"name":"Ada"}` {
		t.Errorf("value = %s", rec.Value)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestGetNotFound(t *testing.T) {
	b := New()
	defer b.Close()

	_, err := b.Get(context.Background(), "missing")
	if !errors.Is(err, physical.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	_ = b.Put(ctx, "k", []byte("abc"))
	rec, _ := b.Get(ctx, "k")
	rec.Value[0] = 'x'

	rec2, _ := b.Get(ctx, "k")
	if string(rec2.Value) != "abc" {
		t.Error("stored value was mutated through returned record")
	}
}

func TestDeleteSubtree(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	_ = b.Put(ctx, "files/photo_jpg", []byte("a"))
	_ = b.Put(ctx, "files/photo_jpg_chunked/c1", []byte("b"))
	_ = b.Put(ctx, "files/photo_jpg_chunked/c2", []byte("c"))
	_ = b.Put(ctx, "files/other", []byte("d"))

	if err := b.Delete(ctx, "files/photo_jpg_chunked"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, p := range []string{"files/photo_jpg_chunked/c1", "files/photo_jpg_chunked/c2"} {
		if _, err := b.Get(ctx, p); !errors.Is(err, physical.ErrNotFound) {
			t.Errorf("%s still present after subtree delete", p)
		}
	}
	if _, err := b.Get(ctx, "files/other"); err != nil {
		t.Errorf("sibling deleted: %v", err)
	}
}

func TestListDirectChildren(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	_ = b.Put(ctx, "messages/m1", []byte("1"))
	_ = b.Put(ctx, "messages/m2", []byte("2"))
	_ = b.Put(ctx, "messages/m2/nested", []byte("3"))
	_ = b.Put(ctx, "messagesOther", []byte("4"))

	recs, err := b.List(ctx, "messages")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 direct children, got %d", len(recs))
	}
	if recs[0].Path != "messages/m1" || recs[1].Path != "messages/m2" {
		t.Errorf("unexpected paths: %s, %s", recs[0].Path, recs[1].Path)
	}
}

func TestStats(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	_ = b.Put(ctx, "a", []byte("12345"))
	_ = b.Put(ctx, "b", []byte("678"))

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Records != 2 || stats.SizeBytes != 8 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.BackendType != "memory" {
		t.Errorf("backend type = %s", stats.BackendType)
	}
}

func TestClosed(t *testing.T) {
	b := New()
	b.Close()

	if err := b.Put(context.Background(), "k", nil); !errors.Is(err, physical.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := b.Get(context.Background(), "k"); !errors.Is(err, physical.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRegistered(t *testing.T) {
	if !physical.IsRegistered("memory") {
		t.Fatal("memory backend not registered")
	}
}
