package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/blumotif/folio/internal/site"
)

// watchablePrefixes limits what the public SSE endpoint can observe.
var watchablePrefixes = []string{site.Root, site.ProjectsPath}

func watchable(path string) bool {
	for _, prefix := range watchablePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// handleEvents streams value snapshots for a watched path as server-sent
// events. One store subscription per connection; the first event is the
// current value.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		path = site.Root
	}
	if !watchable(path) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("path %q is not watchable", path))
		return
	}

	sub, err := s.kv.Subscribe(r.Context(), path, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			value := "null"
			if ev.Value != nil {
				value = string(ev.Value)
			}
			// SSE data must be single-line per data: field.
			value = strings.ReplaceAll(value, "\n", "")
			fmt.Fprintf(w, "event: update\ndata: {\"path\":%q,\"value\":%s}\n\n", ev.Path, value)
			flusher.Flush()
		}
	}
}
