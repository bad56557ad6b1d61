package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"golang.org/x/net/websocket"
)

const (
	vizFixture = `{"paragraphs": [
		{"year": 1965, "text": "We will build roads.", "fm_name": "Minister A", "primary_type": "promise", "primary_value": "citizen"},
		{"year": 1980, "text": "Firms must contribute.", "fm_name": "Minister B", "primary_type": "obligation", "primary_value": "firm"},
		{"year": 1990, "text": "Pay your taxes.", "fm_name": "Minister C", "primary_type": "obligation", "primary_value": "citizen"},
		{"year": 1990, "text": "Weather.", "fm_name": "Minister C", "primary_type": "none", "primary_value": "none"}
	]}`
	storyFixture = `{"sections": [
		{"id": "how_to_read", "year_range": [1965, 2026], "type": "intro", "title": "How to read"},
		{"id": "turning_point", "year_range": [1985, 1995], "type": "era", "header_text": "Turning point", "title": "Recession"},
		{"id": "explore", "year_range": [1965, 2026], "type": "explore", "title": "Explore"}
	], "stats": {"headline": {"multiplier": "3x"}}}`
	trendsFixture = `{"rising": [{"word": "growth", "change": 2.5, "recent_per_10k": 12, "timeseries": [{"year": 1965, "per_10k": 1}]}], "declining": []}`
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bundle, err := dataset.Load(context.Background(), fstest.MapFS{
		dataset.VizFile:    {Data: []byte(vizFixture)},
		dataset.StoryFile:  {Data: []byte(storyFixture)},
		dataset.TrendsFile: {Data: []byte(trendsFixture)},
	})
	if err != nil {
		t.Fatalf("dataset.Load() error = %v", err)
	}
	srv, err := NewServer(Config{
		HTTPAddr:       "127.0.0.1:0",
		ResizeDebounce: 10 * time.Millisecond,
		Logger:         log.New(io.Discard, "", 0),
	}, bundle)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func TestNewServerValidatesInput(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Config{HTTPAddr: ":0"}, nil); err == nil {
		t.Fatal("NewServer(nil bundle) error = nil")
	}
	if _, err := NewServer(Config{}, &dataset.Bundle{}); err == nil {
		t.Fatal("NewServer(no addr) error = nil")
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t).Handler()
	tests := []struct {
		name     string
		method   string
		target   string
		status   int
		contains string
	}{
		{name: "health", method: http.MethodGet, target: "/up", status: http.StatusOK, contains: "OK"},
		{name: "page", method: http.MethodGet, target: "/", status: http.StatusOK, contains: `data-step="turning_point"`},
		{name: "page mobile", method: http.MethodGet, target: "/?width=400&height=700", status: http.StatusOK, contains: `data-tier="small-mobile"`},
		{name: "page bad size", method: http.MethodGet, target: "/?width=wide", status: http.StatusBadRequest, contains: "INVALID_VIEWPORT"},
		{name: "layout", method: http.MethodGet, target: "/api/layout?width=1280&height=800", status: http.StatusOK, contains: `"status":"ok"`},
		{name: "layout degenerate", method: http.MethodGet, target: "/api/layout?width=0&height=800", status: http.StatusOK, contains: `"status":"empty"`},
		{name: "layout missing size", method: http.MethodGet, target: "/api/layout", status: http.StatusBadRequest, contains: "INVALID_VIEWPORT"},
		{name: "layout negative", method: http.MethodGet, target: "/api/layout?width=-5&height=800", status: http.StatusBadRequest, contains: "INVALID_VIEWPORT"},
		{name: "sections", method: http.MethodGet, target: "/api/sections", status: http.StatusOK, contains: `"nav_ids":["how_to_read","turning_point","explore"]`},
		{name: "trends raw", method: http.MethodGet, target: "/api/trends", status: http.StatusOK, contains: `"rising"`},
		{name: "trends kind", method: http.MethodGet, target: "/api/trends?kind=rising&limit=1", status: http.StatusOK, contains: `"word":"growth"`},
		{name: "trends empty kind", method: http.MethodGet, target: "/api/trends?kind=declining", status: http.StatusOK, contains: `"words":[]`},
		{name: "trends unknown kind", method: http.MethodGet, target: "/api/trends?kind=flat", status: http.StatusNotFound, contains: "NOT_FOUND"},
		{name: "static", method: http.MethodGet, target: "/static/story.js", status: http.StatusOK, contains: "WebSocket"},
		{name: "post rejected", method: http.MethodPost, target: "/api/layout?width=1&height=1", status: http.StatusMethodNotAllowed},
		{name: "unknown", method: http.MethodGet, target: "/nope", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("body missing %q: %s", tc.contains, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("missing X-Request-ID")
			}
		})
	}
}

func TestPageHonoursAcceptLanguage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "pt-BR")
	newTestServer(t).Handler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `lang="pt-BR"`) || !strings.Contains(rec.Body.String(), "Promessas a você") {
		t.Fatalf("page not localized: %s", rec.Body.String())
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID(), RecoverPanic(log.New(&logs, "", 0)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(logs.String(), "request_id=req-7") {
		t.Fatalf("log = %q, want request id", logs.String())
	}
}

func TestWebsocketSession(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "", "http://localhost/")
	if err != nil {
		t.Fatalf("websocket.Dial() error = %v", err)
	}
	defer conn.Close()

	hello := receiveFrame(t, conn, frameHello)
	var payload helloPayload
	if err := json.Unmarshal(hello.Payload, &payload); err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	if payload.SessionID == "" || !payload.Explore {
		t.Fatalf("hello = %+v", payload)
	}

	send := func(frameType string, v any) {
		t.Helper()
		frame := wsFrame{Type: frameType}
		if v != nil {
			frame.Payload, _ = json.Marshal(v)
		}
		if err := websocket.JSON.Send(conn, frame); err != nil {
			t.Fatalf("send %s: %v", frameType, err)
		}
	}

	send(frameResize, sizePayload{Width: 1280, Height: 800})
	layoutFrame := receiveFrame(t, conn, frameLayout)
	for _, field := range []string{`"status":"ok"`, `"viewport":{`, `"fills":[`} {
		if !strings.Contains(string(layoutFrame.Payload), field) {
			t.Fatalf("layout payload missing %s: %s", field, layoutFrame.Payload)
		}
	}

	send(frameNavigate, sectionPayload{Section: "missing"})
	errFrame := receiveFrame(t, conn, frameError)
	if !strings.Contains(string(errFrame.Payload), "NOT_FOUND") {
		t.Fatalf("error payload = %s", errFrame.Payload)
	}

	send("dance", nil)
	errFrame = receiveFrame(t, conn, frameError)
	if !strings.Contains(string(errFrame.Payload), "INVALID_EVENT") {
		t.Fatalf("error payload = %s", errFrame.Payload)
	}
}

// receiveFrame reads frames until one of the wanted type arrives.
func TestServeEndsSessionsOnCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	conn, err := websocket.Dial("ws://"+ln.Addr().String()+"/ws", "", "http://localhost/")
	if err != nil {
		t.Fatalf("websocket.Dial() error = %v", err)
	}
	defer conn.Close()
	receiveFrame(t, conn, frameHello)
	if got := srv.sessions.Load(); got != 1 {
		t.Fatalf("live sessions = %d, want 1", got)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if got := srv.sessions.Load(); got != 0 {
		t.Fatalf("live sessions after shutdown = %d, want 0", got)
	}

	// The server closed the socket, so reads fail instead of blocking.
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	for {
		var frame wsFrame
		err := websocket.JSON.Receive(conn, &frame)
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Fatal("session still open after shutdown")
		}
		break
	}
}

func receiveFrame(t *testing.T, conn *websocket.Conn, want string) wsFrame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	for {
		var frame wsFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			t.Fatalf("receive %s: %v", want, err)
		}
		if frame.Type == want {
			return frame
		}
	}
}
