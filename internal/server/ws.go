package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gacha-lab/internal/domain"
)

// Frame statuses sent on a WebSocket session.
const (
	FrameCalculating = "calculating"
	FrameDone        = "done"
	FrameError       = "error"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one server message of a WebSocket session.
type Frame struct {
	Status   string         `json:"status"`
	ResultID string         `json:"resultId,omitempty"`
	Stored   bool           `json:"stored,omitempty"`
	Location string         `json:"location,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Result   *domain.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Code     int            `json:"code,omitempty"` // HTTP-equivalent status of an error
}

// handleWS runs one session: every text message is a workspace document,
// answered by a calculating frame and then a done or error frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.WSSessionsActive.Inc()
	defer s.metrics.WSSessionsActive.Dec()

	conn.SetReadLimit(maxDocumentBytes)

	// The request context is not tied to a hijacked connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := s.log.With(zap.String("remote", r.RemoteAddr))
	log.Debug("websocket session opened")

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		msgType, doc, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			if err := s.writeFrame(conn, Frame{Status: FrameError, Error: "expected a text message", Code: http.StatusBadRequest}); err != nil {
				return
			}
			continue
		}

		if err := s.writeFrame(conn, Frame{Status: FrameCalculating}); err != nil {
			return
		}

		resp, err := s.Compute(ctx, doc)
		frame := Frame{Status: FrameDone}
		if err != nil {
			frame = Frame{Status: FrameError, Error: err.Error(), Code: ErrorStatus(err)}
			if errors.Is(err, context.Canceled) {
				return
			}
		} else {
			frame.ResultID = resp.ResultID
			frame.Stored = resp.Stored
			frame.Location = resp.Location
			frame.Warnings = resp.Warnings
			frame.Result = resp.Result
		}

		if err := s.writeFrame(conn, frame); err != nil {
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f Frame) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(f); err != nil {
		s.log.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
