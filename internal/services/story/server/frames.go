package server

import (
	"encoding/json"
	"log"

	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/mode"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
)

// Inbound frame types sent by the browser.
const (
	frameResize       = "resize"
	frameOrigin       = "origin"
	frameScroll       = "scroll"
	frameWheel        = "wheel"
	frameTouchStart   = "touch_start"
	frameTouchEnd     = "touch_end"
	frameKey          = "key"
	frameExit         = "exit"
	frameNavigate     = "navigate"
	framePointerMove  = "pointer_move"
	framePointerLeave = "pointer_leave"
	frameClick        = "click"
	frameUnpin        = "unpin"
)

// Outbound frame types sent to the browser.
const (
	frameHello    = "hello"
	frameLayout   = "layout"
	frameSection  = "section"
	frameMode     = "mode"
	frameHover    = "hover"
	frameSelect   = "select"
	frameNav      = "nav"
	frameScrollTo = "scroll_to"
	frameError    = "error"
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type sizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type pointPayload struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	InsidePanel bool    `json:"inside_panel,omitempty"`
}

type wheelPayload struct {
	DeltaY float64 `json:"delta_y"`
}

type touchPayload struct {
	Y float64 `json:"y"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type sectionPayload struct {
	Section string `json:"section"`
}

type helloPayload struct {
	SessionID string    `json:"session_id"`
	Mode      mode.Mode `json:"mode"`
	Explore   bool      `json:"explore_enabled"`
}

type modePayload struct {
	Mode   mode.Mode   `json:"mode"`
	Reason mode.Reason `json:"reason"`
}

// layoutPayload is a layout pass plus what the client needs to redraw it:
// the viewport the chart is sized to and one fill colour per record.
type layoutPayload struct {
	layout.Result
	Viewport viewport.Config `json:"viewport"`
	Fills    []string        `json:"fills"`
}

func newLayoutPayload(result layout.Result, cfg viewport.Config) layoutPayload {
	fills := make([]string, len(result.Records))
	for i, record := range result.Records {
		category, _ := hover.CategoryFor(record)
		fills[i] = category.Color
	}
	return layoutPayload{Result: result, Viewport: cfg, Fills: fills}
}

type selectPayload struct {
	Selected bool          `json:"selected"`
	Record   layout.Record `json:"record"`
}

type sectionActivePayload = tracker.Activation

type hoverPayload = hover.Panel

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustJSON(logger *log.Logger, v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Printf("marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
