// Package server exposes the story over HTTP: the rendered page, read-only
// JSON endpoints and one live websocket session per browser tab.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/louisbranch/budgetstory/internal/platform/i18n/catalog"
	"github.com/louisbranch/budgetstory/internal/platform/timeouts"
	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/session"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
)

// Config configures the story server.
type Config struct {
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	ResizeDebounce    time.Duration
	Logger            *log.Logger
}

// Server serves one loaded story.
type Server struct {
	config     Config
	logger     *log.Logger
	bundle     *dataset.Bundle
	catalog    *catalog.Bundle
	records    []layout.Record
	sections   []tracker.Section
	navIDs     []string
	handler    http.Handler
	httpServer *http.Server

	// sessions counts live websocket sessions. Shutdown does not track
	// hijacked connections, so Serve drains them itself.
	sessions atomic.Int64
}

// NewServer builds a server for bundle.
func NewServer(config Config, bundle *dataset.Bundle) (*Server, error) {
	if bundle == nil {
		return nil, errors.New("dataset bundle is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	config.HTTPAddr = httpAddr
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.ResizeDebounce <= 0 {
		config.ResizeDebounce = session.ResizeDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config:   config,
		logger:   logger,
		bundle:   bundle,
		catalog:  catalog.Default(),
		records:  bundle.Viz.Records(),
		sections: bundle.Story.TrackerSections(),
		navIDs:   bundle.Story.NavIDs(),
	}
	if _, ok := bundle.Story.Section(session.ExploreSectionID); !ok {
		logger.Printf("story has no %q section; exploration disabled", session.ExploreSectionID)
	}
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address and serves until the
// context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("story server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	ln, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context ends. Every request,
// websocket sessions included, runs under ctx, so cancelling it ends live
// sessions as well as the listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s == nil {
		return errors.New("story server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	serveErr := make(chan error, 1)
	s.logger.Printf("story server listening on %s records=%d sections=%d", ln.Addr(), len(s.records), len(s.sections))
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := s.drainSessions(shutdownCtx); err != nil {
			return fmt.Errorf("drain websocket sessions: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// drainSessions polls until every websocket session has returned.
func (s *Server) drainSessions(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.sessions.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d sessions still open: %w", s.sessions.Load(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close stops the HTTP server immediately.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	if err := s.httpServer.Close(); err != nil {
		s.logger.Printf("close http server: %v", err)
	}
}
