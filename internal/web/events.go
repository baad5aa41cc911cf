package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/scan"
)

const writeWait = 10 * time.Second

// eventMessage is sent to websocket clients. The first message on a
// connection is a "snapshot"; every later one is a "transition".
type eventMessage struct {
	Type          string           `json:"type"`
	SurfaceID     string           `json:"surface_id"`
	SessionID     string           `json:"session_id,omitempty"`
	From          string           `json:"from,omitempty"`
	State         string           `json:"state"`
	AnimationDone bool             `json:"animation_done,omitempty"`
	Result        *analysis.Result `json:"result,omitempty"`
	Error         string           `json:"error,omitempty"`
	ErrorKind     string           `json:"error_kind,omitempty"`
	Timestamp     int64            `json:"timestamp"`
}

func snapshotMessage(surfaceID string, snap scan.Snapshot) eventMessage {
	view := newSurfaceView(surfaceID, snap)
	return eventMessage{
		Type:          "snapshot",
		SurfaceID:     surfaceID,
		SessionID:     view.SessionID,
		State:         view.State.String(),
		AnimationDone: view.AnimationDone,
		Result:        view.Result,
		Error:         view.Error,
		ErrorKind:     view.ErrorKind,
		Timestamp:     time.Now().Unix(),
	}
}

func transitionMessage(surfaceID string, t scan.Transition) eventMessage {
	msg := eventMessage{
		Type:      "transition",
		SurfaceID: surfaceID,
		SessionID: t.SessionID,
		From:      t.From.String(),
		State:     t.To.String(),
		Result:    visibleResult(t.To, t.Result),
		Timestamp: t.At.Unix(),
	}
	if t.Err != nil {
		msg.Error = t.Err.Error()
		msg.ErrorKind = scan.ErrorKind(t.Err)
	}
	return msg
}

func sendEvent(conn *websocket.Conn, msg eventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleEvents streams a surface's transitions over a websocket
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Failed to upgrade connection", "surface_id", surface.ID, "error", err)
		return
	}
	defer conn.Close()

	// Subscribe before the snapshot so no transition falls between them
	events, cancel := surface.Hub.Subscribe()
	defer cancel()

	if err := sendEvent(conn, snapshotMessage(surface.ID, surface.Coordinator.Snapshot())); err != nil {
		return
	}

	// Clients only send keep-alives; a read error means they went away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case t, ok := <-events:
			if !ok {
				// The hub drops subscribers that fall behind; the client reconnects for a fresh snapshot
				closing := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "fell behind")
				if surface.Hub.Closed() {
					closing = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "surface closed")
				}
				conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(writeWait))
				return
			}
			if err := sendEvent(conn, transitionMessage(surface.ID, t)); err != nil {
				slog.Debug("Dropping websocket client", "surface_id", surface.ID, "error", err)
				return
			}
		case <-ticker.C:
			// A watched surface is in use even when nothing changes
			s.registry.Get(surface.ID)
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
