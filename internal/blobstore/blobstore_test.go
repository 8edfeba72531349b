package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/kvstore/physical/memory"
	"github.com/blumotif/folio/internal/observability"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv := kvstore.New(memory.New(), observability.NewMetrics(), kvstore.SubscriptionConfig{})
	t.Cleanup(func() { kv.Close() })
	return New(kv, observability.NewMetrics())
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"uploads/photo.jpg", "uploads_photo_jpg"},
		{"resume.pdf", "resume_pdf"},
		{"no-specials", "no-specials"},
		{"a.b/c.d", "a_b_c_d"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPutResolveSmall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := []byte("hello portfolio")
	key, err := s.Put(ctx, "uploads/note.txt", File{Name: "note.txt", MIME: "text/plain", Data: data})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "uploads_note_txt" {
		t.Errorf("key = %s", key)
	}

	url, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mime, got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "text/plain" || !bytes.Equal(got, data) {
		t.Error("round trip mismatch")
	}
}

func TestPutResolveChunked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 6 MiB: two chunks, the second partial.
	data := patterned(6 << 20)
	key, err := s.Put(ctx, "uploads/big.pdf", File{Name: "big.pdf", MIME: "application/pdf", Data: data})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "uploads_big_pdf_chunked" {
		t.Errorf("key = %s", key)
	}

	url, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mime, got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "application/pdf" {
		t.Errorf("mime = %s", mime)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("chunked round trip mismatch")
	}
}

func TestChunkBoundaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Exactly one budget stays single; one byte over becomes chunked.
	key, err := s.Put(ctx, "exact.bin", File{MIME: "application/octet-stream", Data: patterned(ChunkBudget)})
	if err != nil {
		t.Fatalf("put exact: %v", err)
	}
	if strings.HasSuffix(key, ChunkedSuffix) {
		t.Errorf("budget-sized file should be single record, key = %s", key)
	}

	key, err = s.Put(ctx, "over.bin", File{MIME: "application/octet-stream", Data: patterned(ChunkBudget + 1)})
	if err != nil {
		t.Fatalf("put over: %v", err)
	}
	if !strings.HasSuffix(key, ChunkedSuffix) {
		t.Errorf("over-budget file should be chunked, key = %s", key)
	}

	url, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != ChunkBudget+1 {
		t.Errorf("len = %d, want %d", len(got), ChunkBudget+1)
	}
}

func TestResolvePassThrough(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"",
		"data:image/png;base64,aGk=",
		"http://example.com/a.png",
		"https://example.com/a.png",
	} {
		got, err := s.Resolve(ctx, key)
		if err != nil {
			t.Fatalf("resolve %q: %v", key, err)
		}
		if got != key {
			t.Errorf("Resolve(%q) = %q, want pass-through", key, got)
		}
	}
}

func TestResolveAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"never_uploaded", "never_uploaded_chunked"} {
		got, err := s.Resolve(ctx, key)
		if err != nil {
			t.Fatalf("resolve %q: %v", key, err)
		}
		if got != "" {
			t.Errorf("Resolve(%q) = %q, want empty", key, got)
		}
	}
}

func TestPutOverwritesPreviousChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	big := patterned(5 << 20)
	if _, err := s.Put(ctx, "doc.pdf", File{MIME: "application/pdf", Data: big}); err != nil {
		t.Fatalf("put big: %v", err)
	}

	small := []byte("replaced")
	key, err := s.Put(ctx, "doc.pdf", File{MIME: "text/plain", Data: small})
	if err != nil {
		t.Fatalf("put small: %v", err)
	}

	url, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, got, _ := DecodeDataURL(url)
	if !bytes.Equal(got, small) {
		t.Error("overwrite did not replace content")
	}

	// Old chunk children must be gone.
	if url, _ := s.Resolve(ctx, "doc_pdf"+ChunkedSuffix); url != "" {
		t.Error("stale chunks survived overwrite")
	}
}

// A zero-byte file is still a file: it stores and resolves to a bare data
// URL, distinct from the empty string an absent key resolves to.
func TestPutResolveZeroByte(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Put(ctx, "empty.txt", File{Name: "empty.txt", MIME: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	url, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if url != "data:text/plain;base64," {
		t.Errorf("url = %q", url)
	}
	mime, data, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "text/plain" || len(data) != 0 {
		t.Errorf("decoded %q / %d bytes", mime, len(data))
	}
}

// Chunk children live under generated keys, so the store enumerates them
// in arbitrary order. Writing them back to front proves reassembly orders
// by index, not by arrival.
func TestReassembleOrderIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parts := [][]byte{[]byte("first-"), []byte("middle-"), []byte("last")}
	for i := len(parts) - 1; i >= 0; i-- {
		value, err := json.Marshal(chunkRecord{
			Data:  EncodeDataURL("text/plain", parts[i]),
			Index: i,
			Total: len(parts),
		})
		if err != nil {
			t.Fatalf("encode chunk %d: %v", i, err)
		}
		if _, err := s.kv.Push(ctx, "files/order_bin", value); err != nil {
			t.Fatalf("push chunk %d: %v", i, err)
		}
	}

	url, err := s.Resolve(ctx, "order_bin"+ChunkedSuffix)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "first-middle-last" {
		t.Errorf("reassembled = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Put(ctx, "gone.txt", File{MIME: "text/plain", Data: []byte("bye")})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "gone.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if url, _ := s.Resolve(ctx, key); url != "" {
		t.Error("file survived delete")
	}

	if err := s.Delete(ctx, "never.txt"); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}

func TestDeleteChunked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Put(ctx, "big.bin", File{MIME: "application/octet-stream", Data: patterned(5 << 20)})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "big.bin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if url, _ := s.Resolve(ctx, key); url != "" {
		t.Error("chunked file survived delete")
	}
}
