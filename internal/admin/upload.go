package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/imaging"
	"github.com/blumotif/folio/internal/observability"
	"github.com/blumotif/folio/internal/site"
)

// MaxUploadSize is the upload validation cap.
const MaxUploadSize = 20 << 20

// progressTick drives the synthetic progress estimate while the store
// write is in flight.
const progressTick = 200 * time.Millisecond

// Upload validates and stores a file, then binds the resulting blob key to
// the referenced section field: the remote document gets an immediate
// single-field merge, and the local buffer is patched to match, without
// touching the dirty/save cycle.
//
// progress (optional) receives a monotonic estimate that holds at 90 until
// the store write completes, then 100, then resets to 0.
func (e *Editor) Upload(ctx context.Context, token string, ref FieldRef, f blobstore.File, progress func(int)) (string, error) {
	if err := e.authorize(token); err != nil {
		return "", err
	}
	if err := ref.Validate(); err != nil {
		return "", err
	}
	if err := validateFile(f); err != nil {
		return "", err
	}

	op, ctx := observability.StartOperation(ctx, e.metrics, "admin.upload")
	key, err := e.upload(ctx, ref, f, progress)
	op.End(err)
	return key, err
}

func validateFile(f blobstore.File) error {
	if len(f.Data) > MaxUploadSize {
		return NewValidationError("file",
			fmt.Sprintf("file is %d bytes, limit is %d", len(f.Data), MaxUploadSize))
	}
	if !strings.HasPrefix(f.MIME, "image/") && !strings.Contains(f.MIME, "pdf") {
		return NewValidationError("file",
			fmt.Sprintf("unsupported type %q, want an image or PDF", f.MIME))
	}
	return nil
}

func (e *Editor) upload(ctx context.Context, ref FieldRef, f blobstore.File, progress func(int)) (string, error) {
	if e.metrics != nil {
		e.metrics.UploadBytes.Add(float64(len(f.Data)))
	}

	if imaging.ShouldRecompress(f.MIME, len(f.Data)) {
		data, mime, err := imaging.Recompress(f.Data)
		if err != nil {
			return "", fmt.Errorf("recompress %s: %w", f.Name, err)
		}
		slog.InfoContext(ctx, "image recompressed",
			"name", f.Name, "before", len(f.Data), "after", len(data))
		f.Data = data
		f.MIME = mime
	}

	stopProgress := startProgress(progress)

	key, err := e.blobs.Put(ctx, ref.StoragePath(), f)
	stopProgress(err == nil)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	if err := e.bindField(ctx, ref, key); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "upload bound", "field", ref.String(), "key", key)
	return key, nil
}

// bindField merges the blob key into the referenced field, both remotely
// and in the local buffer.
func (e *Editor) bindField(ctx context.Context, ref FieldRef, key string) error {
	doc, err := e.bufferedSection(ctx, ref.Section)
	if err != nil {
		return err
	}

	e.mu.Lock()
	topField, topValue, err := ref.patch(doc, key)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("patch %s: %w", ref.String(), err)
	}

	err = e.kv.Update(ctx, site.SectionPath(ref.Section), map[string]json.RawMessage{
		topField: topValue,
	})
	if err != nil {
		return fmt.Errorf("merge %s: %w", ref.String(), err)
	}
	return nil
}

// startProgress runs the synthetic estimate. The returned stop func pushes
// the terminal value and schedules the reset.
func startProgress(progress func(int)) func(ok bool) {
	if progress == nil {
		return func(bool) {}
	}

	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(progressTick)
		defer ticker.Stop()

		pct := 0
		progress(pct)
		for {
			select {
			case <-ticker.C:
				if pct < 90 {
					pct += 10
					progress(pct)
				}
			case <-done:
				return
			}
		}
	}()

	return func(ok bool) {
		once.Do(func() {
			close(done)
			if ok {
				progress(100)
				time.AfterFunc(500*time.Millisecond, func() { progress(0) })
			}
		})
	}
}
