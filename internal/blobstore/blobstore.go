// Package blobstore stores files as base64 data URLs inside the key-value
// store, splitting payloads that exceed the per-record budget into chunk
// children that are reassembled on read.
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/observability"
)

// ChunkBudget is the maximum raw byte size stored in a single record. It
// sits safely under the store's per-record value cap once base64 and JSON
// overhead are added.
const ChunkBudget = 4 << 20

const namespace = "files"

// ChunkedSuffix marks keys whose content is split across chunk children.
const ChunkedSuffix = "_chunked"

// File is an upload destined for the blob store.
type File struct {
	Name string
	MIME string
	Data []byte
}

// chunkRecord is the stored form of one chunk of a large file.
type chunkRecord struct {
	Data  string `json:"data"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// singleRecord is the stored form of a file that fits in one record.
type singleRecord struct {
	Data string `json:"data"`
}

// Store reads and writes files in the files/ namespace of the key-value
// store.
type Store struct {
	kv      *kvstore.Store
	metrics *observability.Metrics
}

// New creates a blob store over kv.
func New(kv *kvstore.Store, metrics *observability.Metrics) *Store {
	return &Store{kv: kv, metrics: metrics}
}

// Sanitize maps a storage path to a flat record key: "." and "/" become "_".
// The mapping is deterministic, so re-uploading to the same path overwrites.
func Sanitize(path string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '/' {
			return '_'
		}
		return r
	}, path)
}

// Put stores f under path and returns the resolver key: the sanitized path
// for single-record files, sanitized + "_chunked" for chunked ones. Chunks
// of a previous upload at the same path are removed first.
func (s *Store) Put(ctx context.Context, path string, f File) (string, error) {
	op, ctx := observability.StartOperation(ctx, s.metrics, "blobstore.put",
		attribute.String("path", path), attribute.Int("size", len(f.Data)))
	key, err := s.put(ctx, path, f)
	op.End(err)
	return key, err
}

func (s *Store) put(ctx context.Context, path string, f File) (string, error) {
	sanitized := Sanitize(path)
	record := namespace + "/" + sanitized

	// Clear any previous upload at this path so stale chunks cannot mix
	// into a later reassembly.
	if err := s.kv.Delete(ctx, record); err != nil {
		return "", fmt.Errorf("clear previous upload: %w", err)
	}

	if len(f.Data) <= ChunkBudget {
		value, err := json.Marshal(singleRecord{Data: EncodeDataURL(f.MIME, f.Data)})
		if err != nil {
			return "", fmt.Errorf("encode record: %w", err)
		}
		if err := s.kv.Set(ctx, record, value); err != nil {
			return "", fmt.Errorf("store file: %w", err)
		}
		if s.metrics != nil {
			s.metrics.BlobChunks.Observe(1)
		}
		return sanitized, nil
	}

	total := (len(f.Data) + ChunkBudget - 1) / ChunkBudget
	for i := 0; i < total; i++ {
		start := i * ChunkBudget
		end := min(start+ChunkBudget, len(f.Data))

		value, err := json.Marshal(chunkRecord{
			Data:  EncodeDataURL(f.MIME, f.Data[start:end]),
			Index: i,
			Total: total,
		})
		if err != nil {
			return "", fmt.Errorf("encode chunk %d: %w", i, err)
		}
		if _, err := s.kv.Push(ctx, record, value); err != nil {
			return "", fmt.Errorf("store chunk %d/%d: %w", i, total, err)
		}
	}

	if s.metrics != nil {
		s.metrics.BlobChunks.Observe(float64(total))
	}
	return sanitized + ChunkedSuffix, nil
}

// Resolve turns a stored key into a data URL. Keys that are already
// resolvable ("", "data:...", "http...") pass through unchanged. A key
// with no stored content resolves to "" without error.
func (s *Store) Resolve(ctx context.Context, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "data:") || strings.HasPrefix(key, "http") {
		return key, nil
	}

	op, ctx := observability.StartOperation(ctx, s.metrics, "blobstore.resolve",
		attribute.String("key", key))
	url, err := s.resolve(ctx, key)
	op.End(err)
	return url, err
}

func (s *Store) resolve(ctx context.Context, key string) (string, error) {
	if base, ok := strings.CutSuffix(key, ChunkedSuffix); ok {
		return s.reassemble(ctx, base)
	}

	raw, err := s.kv.Get(ctx, namespace+"/"+key)
	if err != nil {
		return "", fmt.Errorf("load file %q: %w", key, err)
	}
	if raw == nil {
		return "", nil
	}

	var rec singleRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Data == "" {
		// Legacy form: the record is the bare data URL string.
		var legacy string
		if err := json.Unmarshal(raw, &legacy); err == nil {
			return legacy, nil
		}
		return "", nil
	}
	return rec.Data, nil
}

func (s *Store) reassemble(ctx context.Context, base string) (string, error) {
	raw, err := s.kv.Get(ctx, namespace+"/"+base)
	if err != nil {
		return "", fmt.Errorf("load chunks %q: %w", base, err)
	}
	if raw == nil {
		return "", nil
	}

	var children map[string]chunkRecord
	if err := json.Unmarshal(raw, &children); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptChunks, base, err)
	}
	if len(children) == 0 {
		return "", nil
	}

	chunks := make([]chunkRecord, 0, len(children))
	for _, c := range children {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	var mime string
	var assembled []byte
	for i, c := range chunks {
		if c.Index != i || c.Total != len(chunks) {
			return "", fmt.Errorf("%w: %s: have chunk %d/%d at position %d",
				ErrCorruptChunks, base, c.Index, c.Total, i)
		}
		m, data, err := DecodeDataURL(c.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: chunk %d: %v", ErrCorruptChunks, base, i, err)
		}
		if i == 0 {
			mime = m
			assembled = make([]byte, 0, len(data)*len(chunks))
		}
		assembled = append(assembled, data...)
	}

	return EncodeDataURL(mime, assembled), nil
}

// Delete removes the file stored at path, chunked or not. Deleting an
// absent path is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	op, ctx := observability.StartOperation(ctx, s.metrics, "blobstore.delete",
		attribute.String("path", path))
	err := s.kv.Delete(ctx, namespace+"/"+Sanitize(path))
	op.End(err)
	return err
}
