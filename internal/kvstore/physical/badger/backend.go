// Package badger provides a BadgerDB-backed key-value storage backend.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/storage"
)

const (
	KeyPath         = "path"
	KeySyncWrites   = "sync_writes"
	KeyMemTableSize = "mem_table_size"
	KeyInMemory     = "in_memory"
)

const recordPrefix = "rec/"

// Values at or above this size are zstd-compressed on disk. The first byte
// of every stored value is a marker distinguishing raw from compressed.
const compressThreshold = 1 << 10

const (
	markerRaw  = 0x00
	markerZstd = 0x01
)

func init() {
	physical.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:         "~/.folio/data",
		KeySyncWrites:   "false",
		KeyMemTableSize: strconv.FormatInt(64<<20, 10),
		KeyInMemory:     "false",
	}
}

// NewFactory creates a new BadgerDB backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	inMemory, err := storage.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path := storage.GetString(config, KeyPath, "")
		if path == "" {
			return nil, storage.NewConfigError("badger", KeyPath, "cannot be empty")
		}
		path = storage.ExpandPath(path)

		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
		}

		syncWrites, err := storage.GetBool(config, KeySyncWrites, false)
		if err != nil {
			return nil, storage.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
		}

		memTableSize, err := storage.GetInt64(config, KeyMemTableSize, 64<<20)
		if err != nil {
			return nil, storage.NewConfigErrorWithValue("badger", KeyMemTableSize, config[KeyMemTableSize], err.Error())
		}

		opts = badger.DefaultOptions(path)
		opts.SyncWrites = syncWrites
		if memTableSize > 0 {
			opts.MemTableSize = memTableSize
		}
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	slog.Info("badger kvstore initialized", "in_memory", inMemory)
	return NewWithDB(db)
}

// Backend is a BadgerDB implementation of physical.Backend.
type Backend struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	closed  atomic.Bool
}

// envelope is the on-disk record format.
type envelope struct {
	Value     []byte `cbor:"1,keyasint"`
	UpdatedAt int64  `cbor:"2,keyasint"`
}

// NewWithDB creates a backend on an existing BadgerDB instance.
func NewWithDB(db *badger.DB) (*Backend, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Backend{db: db, encoder: enc, decoder: dec}, nil
}

func recordKey(path string) []byte {
	return []byte(recordPrefix + path)
}

func (b *Backend) encode(path string, value []byte) ([]byte, error) {
	env := envelope{Value: value, UpdatedAt: time.Now().UTC().UnixNano()}
	raw, err := cbor.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode record %q: %w", path, err)
	}

	if len(raw) < compressThreshold {
		return append([]byte{markerRaw}, raw...), nil
	}
	compressed := b.encoder.EncodeAll(raw, []byte{markerZstd})
	if len(compressed) >= len(raw)+1 {
		return append([]byte{markerRaw}, raw...), nil
	}
	return compressed, nil
}

func (b *Backend) decode(path string, data []byte) (*physical.Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode record %q: empty value", path)
	}

	raw := data[1:]
	if data[0] == markerZstd {
		var err error
		raw, err = b.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress record %q: %w", path, err)
		}
	}

	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", path, err)
	}
	return &physical.Record{
		Path:      path,
		Value:     env.Value,
		UpdatedAt: time.Unix(0, env.UpdatedAt).UTC(),
	}, nil
}

func (b *Backend) Get(_ context.Context, path string) (*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	var rec *physical.Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(path))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return physical.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = b.decode(path, val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *Backend) Put(_ context.Context, path string, value []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	data, err := b.encode(path, value)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(path), data)
	})
}

func (b *Backend) Delete(_ context.Context, path string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(recordKey(path)); err != nil {
			return err
		}

		prefix := recordKey(path + "/")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Backend) List(_ context.Context, path string) ([]*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	scanPrefix := recordKey("")
	if path != "" {
		scanPrefix = recordKey(path + "/")
	}

	var out []*physical.Record
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: scanPrefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			recPath := string(item.Key()[len(recordPrefix):])
			seg := physical.ChildSegment(path, recPath)
			if seg == "" || recPath != physical.JoinPath(path, seg) {
				continue
			}
			err := item.Value(func(val []byte) error {
				rec, err := b.decode(recPath, val)
				if err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *Backend) Stats(_ context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	stats := &physical.Stats{BackendType: "badger"}
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(recordPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stats.Records++
			stats.SizeBytes += it.Item().EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.encoder.Close()
	b.decoder.Close()
	return b.db.Close()
}

