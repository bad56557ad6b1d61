package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log"
	"math"
	"sync"
	"time"

	apperrors "github.com/louisbranch/budgetstory/internal/platform/errors"
	"github.com/louisbranch/budgetstory/internal/platform/requestctx"
	"github.com/louisbranch/budgetstory/internal/platform/timeouts"
	"github.com/louisbranch/budgetstory/internal/services/story/hover"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/mode"
	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
	"github.com/louisbranch/budgetstory/internal/services/story/session"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
	"github.com/louisbranch/budgetstory/internal/services/story/viewport"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 240
	maxDecodeErrorsPerConn = 3
	loopBuffer             = 64
)

var errPeerGone = stderrors.New("websocket peer gone")

// frameSink receives outbound frames.
type frameSink interface {
	writeFrame(frame wsFrame) error
}

type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(timeouts.SocketWrite)); err != nil {
		return err
	}
	return websocket.JSON.Send(p.conn, frame)
}

// sessionHooks forwards every session notification to sink as a frame.
func sessionHooks(logger *log.Logger, sink frameSink) session.Hooks {
	send := func(frameType string, payload any) {
		if err := sink.writeFrame(wsFrame{Type: frameType, Payload: mustJSON(logger, payload)}); err != nil {
			logger.Printf("websocket write type=%s err=%v", frameType, err)
		}
	}
	return session.Hooks{
		OnLayout: func(result layout.Result, cfg viewport.Config) {
			send(frameLayout, newLayoutPayload(result, cfg))
		},
		OnSectionActive: func(activation tracker.Activation) {
			send(frameSection, sectionActivePayload(activation))
		},
		OnModeChanged: func(m mode.Mode, reason mode.Reason) {
			send(frameMode, modePayload{Mode: m, Reason: reason})
		},
		OnRecordSelected: func(record layout.Record, ok bool) {
			send(frameSelect, selectPayload{Selected: ok, Record: record})
		},
		OnPanel:     func(panel hover.Panel) { send(frameHover, hoverPayload(panel)) },
		OnNavActive: func(id string) { send(frameNav, sectionPayload{Section: id}) },
		OnScrollTo:  func(id string) { send(frameScrollTo, sectionPayload{Section: id}) },
	}
}

func writeWSError(logger *log.Logger, sink frameSink, requestID string, err error) {
	frame := wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload: mustJSON(logger, wsErrorEnvelope{Error: wsError{
			Code:    string(apperrors.CodeOf(err)),
			Message: err.Error(),
		}}),
	}
	if writeErr := sink.writeFrame(frame); writeErr != nil {
		logger.Printf("websocket write type=%s err=%v", frameError, writeErr)
	}
}

// handleSocket runs one ephemeral story session for the connection. Nothing
// outlives the connection.
func (s *Server) handleSocket(conn *websocket.Conn) {
	s.sessions.Add(1)
	defer s.sessions.Add(-1)
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	lang := s.catalog.Match("")
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		lang = s.catalog.Match(request.Header.Get("Accept-Language"))
	}

	peer := newWSPeer(conn)
	loop := schedule.NewLoop(loopBuffer)
	controller := session.New(loop, s.records, session.Options{
		Sections:       s.sections,
		NavIDs:         s.navIDs,
		ResizeDebounce: s.config.ResizeDebounce,
		Language:       lang,
		Logger:         s.logger,
		Hooks:          sessionHooks(s.logger, peer),
	})
	s.logger.Printf("websocket session=%s opened remote=%s request_id=%s", controller.ID(), remoteAddr(conn), requestctx.RequestIDFromContext(ctx))

	loop.Post(func() {
		hello := helloPayload{
			SessionID: controller.ID(),
			Mode:      controller.CurrentMode(),
			Explore:   controller.Degraded() == nil,
		}
		if err := peer.writeFrame(wsFrame{Type: frameHello, Payload: mustJSON(s.logger, hello)}); err != nil {
			s.logger.Printf("websocket session=%s hello err=%v", controller.ID(), err)
		}
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return loop.Run(groupCtx)
	})
	group.Go(func() error {
		defer loop.Close()
		return s.readFrames(groupCtx, conn, loop, controller, peer)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		// Unblocks the reader when the server shuts down.
		_ = conn.Close()
		return nil
	})
	err := group.Wait()

	// The loop has stopped; the controller is no longer shared.
	controller.Close()
	if err != nil && !stderrors.Is(err, errPeerGone) && !stderrors.Is(err, schedule.ErrLoopClosed) && !stderrors.Is(err, context.Canceled) {
		s.logger.Printf("websocket session=%s closed err=%v", controller.ID(), err)
		return
	}
	s.logger.Printf("websocket session=%s closed relayouts=%d", controller.ID(), controller.RelayoutCount())
}

func (s *Server) readFrames(ctx context.Context, conn *websocket.Conn, loop *schedule.Loop, controller *session.Controller, peer frameSink) error {
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var frame wsFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if !isDecodeError(err) {
				return errPeerGone
			}
			decodeErrors++
			writeWSError(s.logger, peer, "", apperrors.New(apperrors.CodeInvalidEvent, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return apperrors.Wrap(apperrors.CodeInvalidEvent, "too many invalid frames", err)
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			writeWSError(s.logger, peer, frame.RequestID, apperrors.New(apperrors.CodeInvalidEvent, "payload too large"))
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			writeWSError(s.logger, peer, frame.RequestID, apperrors.New(apperrors.CodeInvalidEvent, "rate limit exceeded"))
			return apperrors.New(apperrors.CodeInvalidEvent, "rate limit exceeded")
		}

		if !loop.Post(func() {
			if err := dispatch(controller, frame); err != nil {
				writeWSError(s.logger, peer, frame.RequestID, err)
			}
		}) {
			return schedule.ErrLoopClosed
		}
	}
}

// dispatch applies one inbound frame to the session. It must run on the
// session's execution context.
func dispatch(c *session.Controller, frame wsFrame) error {
	switch frame.Type {
	case frameResize:
		var p sizePayload
		if err := decodePayload(frame, &p); err != nil {
			return err
		}
		if !finite(p.Width, p.Height) || p.Width < 0 || p.Height < 0 {
			return apperrors.New(apperrors.CodeInvalidViewport, "viewport size must be finite and non-negative")
		}
		c.Resize(p.Width, p.Height)
	case frameOrigin:
		var p pointPayload
		if err := decodePoint(frame, &p); err != nil {
			return err
		}
		c.SetOrigin(p.X, p.Y)
	case frameScroll:
		var snap tracker.Snapshot
		if err := decodePayload(frame, &snap); err != nil {
			return err
		}
		if !finite(snap.ViewportHeight) || snap.ViewportHeight < 0 {
			return apperrors.New(apperrors.CodeInvalidViewport, "viewport height must be finite and non-negative")
		}
		for _, rect := range snap.Sections {
			if !finite(rect.Top, rect.Bottom) {
				return apperrors.New(apperrors.CodeInvalidEvent, "section bounds must be finite")
			}
		}
		c.Scroll(snap)
	case frameWheel:
		var p wheelPayload
		if err := decodePayload(frame, &p); err != nil {
			return err
		}
		if !finite(p.DeltaY) {
			return apperrors.New(apperrors.CodeInvalidEvent, "wheel delta must be finite")
		}
		c.Wheel(p.DeltaY)
	case frameTouchStart, frameTouchEnd:
		var p touchPayload
		if err := decodePayload(frame, &p); err != nil {
			return err
		}
		if !finite(p.Y) {
			return apperrors.New(apperrors.CodeInvalidEvent, "touch position must be finite")
		}
		if frame.Type == frameTouchStart {
			c.TouchStart(p.Y)
		} else {
			c.TouchEnd(p.Y)
		}
	case frameKey:
		var p keyPayload
		if err := decodePayload(frame, &p); err != nil {
			return err
		}
		c.Key(p.Key)
	case frameExit:
		c.ExitExplore()
	case frameNavigate:
		var p sectionPayload
		if err := decodePayload(frame, &p); err != nil {
			return err
		}
		return c.NavigateTo(p.Section)
	case framePointerMove:
		var p pointPayload
		if err := decodePoint(frame, &p); err != nil {
			return err
		}
		c.PointerMove(p.X, p.Y)
	case framePointerLeave:
		c.PointerLeave()
	case frameClick:
		var p pointPayload
		if err := decodePoint(frame, &p); err != nil {
			return err
		}
		c.Click(p.X, p.Y, p.InsidePanel)
	case frameUnpin:
		c.Unpin()
	default:
		return apperrors.WithMetadata(apperrors.CodeInvalidEvent, "unsupported frame type", map[string]string{"type": frame.Type})
	}
	return nil
}

func decodePayload(frame wsFrame, target any) error {
	if len(frame.Payload) == 0 {
		return apperrors.WithMetadata(apperrors.CodeInvalidEvent, "payload required", map[string]string{"type": frame.Type})
	}
	if err := json.Unmarshal(frame.Payload, target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidEvent, "decode "+frame.Type, err)
	}
	return nil
}

func decodePoint(frame wsFrame, p *pointPayload) error {
	if err := decodePayload(frame, p); err != nil {
		return err
	}
	if !finite(p.X, p.Y) {
		return apperrors.New(apperrors.CodeInvalidEvent, "pointer position must be finite")
	}
	return nil
}

// isDecodeError reports whether err came from a malformed message rather
// than from the connection.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func remoteAddr(conn *websocket.Conn) string {
	if request := conn.Request(); request != nil {
		return request.RemoteAddr
	}
	return "-"
}
