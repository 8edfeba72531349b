// Package server exposes the site over HTTP: a JSON read API, an SSE stream
// for realtime updates, and the bearer-gated admin mutation surface.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/blumotif/folio/internal/admin"
	"github.com/blumotif/folio/internal/auth"
	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/kvstore"
	"github.com/blumotif/folio/internal/mirror"
	"github.com/blumotif/folio/internal/observability"
)

// Config holds server settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server wires the HTTP API over the application services.
type Server struct {
	cfg     Config
	kv      *kvstore.Store
	blobs   *blobstore.Store
	mirror  *mirror.Mirror
	editor  *admin.Editor
	auth    *auth.Service
	metrics *observability.Metrics

	httpServer *http.Server
}

// New creates a Server. Call Handler for tests or Start to listen.
func New(cfg Config, kv *kvstore.Store, blobs *blobstore.Store, m *mirror.Mirror,
	editor *admin.Editor, authSvc *auth.Service, metrics *observability.Metrics) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:     cfg,
		kv:      kv,
		blobs:   blobs,
		mirror:  m,
		editor:  editor,
		auth:    authSvc,
		metrics: metrics,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/site", s.handleSite)
	mux.HandleFunc("GET /api/site/{section}", s.handleSection)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/files/{key}", s.handleFile)
	mux.HandleFunc("POST /api/messages", s.handleMessageSubmit)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.Handle("PUT /api/admin/sections", s.requireAuth(s.handleSaveSections))
	mux.Handle("POST /api/admin/upload", s.requireAuth(s.handleUpload))
	mux.Handle("DELETE /api/admin/files/{path...}", s.requireAuth(s.handleDeleteFile))
	mux.Handle("POST /api/admin/seed", s.requireAuth(s.handleSeed))
	mux.Handle("GET /api/admin/messages", s.requireAuth(s.handleMessages))

	return s.logRequests(mux)
}

// Start listens in a goroutine and returns immediately.
func (s *Server) Start(ctx context.Context) {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
