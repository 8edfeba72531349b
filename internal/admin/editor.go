// Package admin implements the gated mutation flow: a local edit buffer
// saved section by section, and the upload pipeline that binds files to
// section fields.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/observability"
	"github.com/blumotif/folio/internal/site"
)

// Editor accumulates section edits locally and writes them back with Save.
// Every mutating method checks the session token first.
type Editor struct {
	kv      *kvstore.Store
	blobs   *blobstore.Store
	auth    *auth.Service
	metrics *observability.Metrics

	mu     sync.Mutex
	buffer map[string]map[string]json.RawMessage
	dirty  bool
}

// NewEditor creates an Editor. authSvc nil disables the gate (local
// tooling).
func NewEditor(kv *kvstore.Store, blobs *blobstore.Store, authSvc *auth.Service, metrics *observability.Metrics) *Editor {
	return &Editor{
		kv:      kv,
		blobs:   blobs,
		auth:    authSvc,
		metrics: metrics,
		buffer:  make(map[string]map[string]json.RawMessage),
	}
}

func (e *Editor) authorize(token string) error {
	if e.auth == nil {
		return nil
	}
	if !e.auth.Verify(token) {
		return ErrUnauthorized
	}
	return nil
}

// SetSection replaces a whole section document in the buffer.
func (e *Editor) SetSection(token, section string, doc map[string]json.RawMessage) error {
	if err := e.authorize(token); err != nil {
		return err
	}
	if !site.IsSection(section) {
		return NewValidationError("section", fmt.Sprintf("unknown section %q", section))
	}

	copied := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		copied[k] = v
	}

	e.mu.Lock()
	e.buffer[section] = copied
	e.dirty = true
	e.mu.Unlock()
	return nil
}

// SetField updates one field of a buffered section, loading the remote
// document into the buffer first when needed.
func (e *Editor) SetField(ctx context.Context, token, section, field string, value json.RawMessage) error {
	if err := e.authorize(token); err != nil {
		return err
	}
	if !site.IsSection(section) {
		return NewValidationError("section", fmt.Sprintf("unknown section %q", section))
	}
	if field == "" {
		return NewValidationError("field", "cannot be empty")
	}

	doc, err := e.bufferedSection(ctx, section)
	if err != nil {
		return err
	}

	e.mu.Lock()
	doc[field] = value
	e.dirty = true
	e.mu.Unlock()
	return nil
}

// bufferedSection returns the buffer entry for section, populating it from
// the store on first touch.
func (e *Editor) bufferedSection(ctx context.Context, section string) (map[string]json.RawMessage, error) {
	e.mu.Lock()
	if doc, ok := e.buffer[section]; ok {
		e.mu.Unlock()
		return doc, nil
	}
	e.mu.Unlock()

	raw, err := e.kv.Get(ctx, site.SectionPath(section))
	if err != nil {
		return nil, fmt.Errorf("load section %s: %w", section, err)
	}

	doc := make(map[string]json.RawMessage)
	if raw != nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode section %s: %w", section, err)
		}
	}

	e.mu.Lock()
	if existing, ok := e.buffer[section]; ok {
		doc = existing
	} else {
		e.buffer[section] = doc
	}
	e.mu.Unlock()
	return doc, nil
}

// Dirty reports whether unsaved buffered edits exist.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Buffer returns a copy of the buffered document for a section, or nil.
func (e *Editor) Buffer(section string) map[string]json.RawMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, ok := e.buffer[section]
	if !ok {
		return nil
	}
	out := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Save writes every buffered section back as a full document, one section
// at a time in the fixed section order. The dirty flag clears only when
// every write succeeds; a failure leaves the buffer intact for retry.
func (e *Editor) Save(ctx context.Context, token string) error {
	if err := e.authorize(token); err != nil {
		return err
	}

	op, ctx := observability.StartOperation(ctx, e.metrics, "admin.save")
	err := e.save(ctx)
	op.End(err)
	return err
}

func (e *Editor) save(ctx context.Context) error {
	e.mu.Lock()
	pending := make(map[string]map[string]json.RawMessage, len(e.buffer))
	for section, doc := range e.buffer {
		copied := make(map[string]json.RawMessage, len(doc))
		for k, v := range doc {
			copied[k] = v
		}
		pending[section] = copied
	}
	e.mu.Unlock()

	for _, section := range site.Sections {
		doc, ok := pending[section]
		if !ok {
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode section %s: %w", section, err)
		}
		if err := e.kv.Set(ctx, site.SectionPath(section), raw); err != nil {
			return fmt.Errorf("save section %s: %w", section, err)
		}
		if e.metrics != nil {
			e.metrics.SectionWrites.WithLabelValues(section).Inc()
		}
		slog.InfoContext(ctx, "section saved", "section", section)
	}

	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
	return nil
}

// Discard drops all buffered edits.
func (e *Editor) Discard() {
	e.mu.Lock()
	e.buffer = make(map[string]map[string]json.RawMessage)
	e.dirty = false
	e.mu.Unlock()
}

// DeleteFile removes an uploaded blob. Gated like every other mutation.
func (e *Editor) DeleteFile(ctx context.Context, token, path string) error {
	if err := e.authorize(token); err != nil {
		return err
	}
	return e.blobs.Delete(ctx, path)
}
