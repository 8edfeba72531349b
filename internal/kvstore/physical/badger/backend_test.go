package badger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/blumotif/folio/internal/kvstore/physical"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	db, err := badgerdb.Open(badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}

	b, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPutGetRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	value := []byte(`{"greeting":"hello"}`)
	if err := b.Put(ctx, "siteConfig/hero", value); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := b.Get(ctx, "siteConfig/hero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(rec.Value, value) {
		t.Errorf("value = %s, want %s", rec.Value, value)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestLargeValueCompression(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	// Repetitive payload well above the compression threshold.
	value := bytes.Repeat([]byte("portfolio "), 10_000)
	if err := b.Put(ctx, "files/big", value); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := b.Get(ctx, "files/big")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(rec.Value, value) {
		t.Error("compressed round trip mismatch")
	}
}

func TestIncompressibleValueStoredRaw(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	value := make([]byte, 4096)
	for i := range value {
		value[i] = byte(i*31 + i/7)
	}
	if err := b.Put(ctx, "files/noise", value); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := b.Get(ctx, "files/noise")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(rec.Value, value) {
		t.Error("round trip mismatch")
	}
}

func TestNotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Get(context.Background(), "nope")
	if !errors.Is(err, physical.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSubtree(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_ = b.Put(ctx, "files/a_pdf_chunked/k1", []byte("1"))
	_ = b.Put(ctx, "files/a_pdf_chunked/k2", []byte("2"))
	_ = b.Put(ctx, "files/a_pdf", []byte("3"))

	if err := b.Delete(ctx, "files/a_pdf_chunked"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := b.Get(ctx, "files/a_pdf_chunked/k1"); !errors.Is(err, physical.ErrNotFound) {
		t.Error("child k1 survived delete")
	}
	if _, err := b.Get(ctx, "files/a_pdf"); err != nil {
		t.Errorf("sibling deleted: %v", err)
	}
}

func TestListDirectChildren(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_ = b.Put(ctx, "messages/a", []byte("1"))
	_ = b.Put(ctx, "messages/b", []byte("2"))
	_ = b.Put(ctx, "messages/b/deep", []byte("3"))

	recs, err := b.List(ctx, "messages")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestStats(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_ = b.Put(ctx, "a", []byte("x"))
	_ = b.Put(ctx, "b", []byte("y"))

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Records != 2 {
		t.Errorf("records = %d, want 2", stats.Records)
	}
	if stats.BackendType != "badger" {
		t.Errorf("backend type = %s", stats.BackendType)
	}
}

func TestClosedBackend(t *testing.T) {
	b := newTestBackend(t)
	b.Close()

	if err := b.Put(context.Background(), "k", nil); !errors.Is(err, physical.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
