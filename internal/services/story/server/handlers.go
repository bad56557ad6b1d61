package server

import (
	"context"
	"net/http"
	"strconv"

	apperrors "github.com/louisbranch/budgetstory/internal/platform/errors"
	"github.com/louisbranch/budgetstory/internal/platform/otel"
	"github.com/louisbranch/budgetstory/internal/platform/requestctx"
	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/static"
	"github.com/louisbranch/budgetstory/internal/services/story/templates"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/websocket"
)

// Page defaults used before the browser reports its real size.
const (
	defaultWidth  = 1280
	defaultHeight = 800
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	get := RequireMethod(http.MethodGet)
	mux.Handle("/{$}", Chain(http.HandlerFunc(s.handlePage), get))
	mux.Handle("/api/layout", Chain(http.HandlerFunc(s.handleLayout), get))
	mux.Handle("/api/sections", Chain(http.HandlerFunc(s.handleSections), get))
	mux.Handle("/api/trends", Chain(http.HandlerFunc(s.handleTrends), get))
	mux.Handle("/static/", Chain(http.StripPrefix("/static/", http.FileServer(http.FS(static.FS()))), get))
	mux.Handle("/ws", Chain(websocket.Handler(s.handleSocket), get))
	return Chain(mux, RequestID(), RecoverPanic(s.logger))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	width, height, err := viewportFromQuery(r, defaultWidth, defaultHeight)
	if err != nil {
		WriteError(w, err)
		return
	}
	cfg := viewport.ConfigFor(width, height)
	tag := s.catalog.Match(r.Header.Get("Accept-Language"))
	page := templates.Page(templates.PageData{
		Lang:     tag.String(),
		Printer:  s.catalog.Printer(tag),
		Sections: s.bundle.Story.Sections,
		NavIDs:   s.navIDs,
		Layout:   s.compute(r.Context(), cfg),
		Config:   cfg,
		Script:   "/static/" + static.ClientScript,
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		s.logger.Printf("render page request_id=%s err=%v", requestctx.RequestIDFromContext(r.Context()), err)
	}
}

type layoutResponse struct {
	Config viewport.Config `json:"config"`
	Layout layout.Result   `json:"layout"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	width, height, err := viewportFromQuery(r, -1, -1)
	if err != nil {
		WriteError(w, err)
		return
	}
	if width < 0 || height < 0 {
		WriteError(w, apperrors.New(apperrors.CodeInvalidViewport, "width and height are required"))
		return
	}
	cfg := viewport.ConfigFor(width, height)
	_ = WriteJSON(w, http.StatusOK, layoutResponse{Config: cfg, Layout: s.compute(r.Context(), cfg)})
}

type sectionsResponse struct {
	Sections []dataset.Section `json:"sections"`
	NavIDs   []string          `json:"nav_ids"`
	Stats    map[string]any    `json:"stats,omitempty"`
}

func (s *Server) handleSections(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, sectionsResponse{
		Sections: s.bundle.Story.Sections,
		NavIDs:   s.navIDs,
		Stats:    s.bundle.Story.Stats,
	})
}

// handleTrends serves the trend document untouched, or one word list when
// kind is given.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.bundle.Trends.Raw()))
		return
	}
	if kind != dataset.TrendRising && kind != dataset.TrendDeclining {
		WriteError(w, apperrors.WithMetadata(apperrors.CodeNotFound, "unknown trend kind", map[string]string{"kind": kind}))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, apperrors.New(apperrors.CodeInvalidEvent, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	words := s.bundle.Trends.Words(kind, limit)
	if words == nil {
		words = []dataset.Word{}
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"kind": kind, "words": words})
}

func (s *Server) compute(ctx context.Context, cfg viewport.Config) layout.Result {
	_, span := otel.Tracer("story/server").Start(ctx, "layout.compute")
	defer span.End()
	result := layout.Compute(s.records, cfg)
	span.SetAttributes(
		attribute.Float64("viewport.width", cfg.Width),
		attribute.Float64("viewport.height", cfg.Height),
		attribute.String("layout.status", result.Status.String()),
		attribute.Int("layout.bands", len(result.Bands)),
	)
	return result
}

// viewportFromQuery reads width and height, using the fallbacks when a
// value is absent.
func viewportFromQuery(r *http.Request, fallbackWidth, fallbackHeight float64) (float64, float64, error) {
	width, err := floatParam(r, "width", fallbackWidth)
	if err != nil {
		return 0, 0, err
	}
	height, err := floatParam(r, "height", fallbackHeight)
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) || v < 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidViewport, name+" must be a non-negative number", map[string]string{name: raw})
	}
	return v, nil
}
