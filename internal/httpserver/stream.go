package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/orgball2608/storyreel/internal/viewer"
	apperrors "github.com/orgball2608/storyreel/pkg/errors"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// streamCommand lets a connected player drive the session over the socket
// instead of separate HTTP calls.
type streamCommand struct {
	Action     string `json:"action"`
	UserID     string `json:"userId,omitempty"`
	Index      int    `json:"index,omitempty"`
	StoryID    string `json:"storyId,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "session_id", session.ID(), "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go s.readCommands(conn, session, done)

	cursor := session.Snapshot()
	if err := writeEvent(conn, viewer.Event{Type: viewer.EventCursor, Cursor: &cursor}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				s.log.Debug("WebSocket write failed", "session_id", session.ID(), "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) readCommands(conn *websocket.Conn, session *viewer.Session, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd streamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("WebSocket closed", "session_id", session.ID(), "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if !s.limiter.Allow(session.ID()) {
			continue
		}
		s.dispatch(session, cmd)
	}
}

func (s *Server) dispatch(session *viewer.Session, cmd streamCommand) {
	switch cmd.Action {
	case "open":
		if err := session.Open(cmd.UserID, cmd.Index); err != nil {
			session.Notice(apperrors.GetMessage(err))
		}
	case "duration":
		session.ReportDuration(cmd.StoryID, time.Duration(cmd.DurationMs)*time.Millisecond)
	case "media-error":
		session.ReportMediaError(cmd.StoryID)
	default:
		if !action(cmd.Action).apply(session) {
			s.log.Debug("Unknown stream command", "session_id", session.ID(), "action", cmd.Action)
		}
	}
}

// writeEvent is only called from the handler goroutine, which is the sole
// writer of data frames on conn.
func writeEvent(conn *websocket.Conn, ev viewer.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
