// SPDX-License-Identifier: MIT

// Package server exposes the running engine over HTTP: health, settings,
// statistics, telemetry and a WebSocket telemetry feed.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vocalfx/internal/log"
	"vocalfx/internal/stream"
	"vocalfx/internal/vocoder"
)

const shutdownTimeout = 5 * time.Second

// Engine is the control surface of a running stream.Stream.
type Engine interface {
	Config() vocoder.Config
	Latency() int
	Settings() vocoder.Settings
	SetSettings(vocoder.Settings) error
	SetBypass(bool)
	Bypassed() bool
	Stats() *stream.Stats
	Telemetry(withSpectrum bool) stream.Telemetry
}

var _ Engine = (*stream.Stream)(nil)

// Server is the HTTP server
type Server struct {
	addr    string
	engine  Engine
	router  *chi.Mux
	feed    http.Handler
	log     *log.Logger
	started time.Time
}

// New creates a server for engine. feed, when non-nil, is mounted at /ws.
func New(addr string, engine Engine, feed http.Handler) *Server {
	s := &Server{
		addr:    addr,
		engine:  engine,
		router:  chi.NewRouter(),
		feed:    feed,
		log:     log.Named("http"),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/keys", s.handleKeys)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Cache-Control", "no-store"))
		r.Get("/config", s.handleConfig)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Patch("/settings", s.handlePatchSettings)
		r.Get("/stats", s.handleStats)
		r.Get("/telemetry", s.handleTelemetry)
		r.Get("/bypass", s.handleGetBypass)
		r.Put("/bypass", s.handlePutBypass)
	})

	if s.feed != nil {
		r.Handle("/ws", s.feed)
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs each request at debug level with its status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugf("%s %s %d %dB %s [%s]", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start).Round(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}
