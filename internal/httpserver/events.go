// internal/httpserver/events.go
//
// GET /challenge/{id}/events upgrades to a WebSocket that streams every
// snapshot of the session (countdown ticks, relocations, phase changes).
// Clients may also send {"action":"select","x":..,"y":..} or
// {"action":"hit"|"miss"|"advance"|"restart"|"close"};
// replies to rejected actions come back as {"type":"error"} frames.
// The stream ends with a normal close frame once the session finishes.

package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/starcipher/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsBuffer     = 32
)

// wsMessage is a server to client frame.
type wsMessage struct {
	Type  string         `json:"type"` // "state" | "error"
	Error string         `json:"error,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
}

// wsCommand is a client to server frame. X and Y are used by "select".
type wsCommand struct {
	Action string  `json:"action"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

var wsActions = map[string]game.Event{
	"hit":     game.EventHit,
	"miss":    game.EventMiss,
	"advance": game.EventAdvance,
	"restart": game.EventRestart,
}

// checkOrigin accepts same-origin tools (no Origin header) and the configured client.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.ClientOrigin
}

// handleEvents streams session snapshots over a WebSocket.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}

	snaps, cancel := sess.Subscribe(wsBuffer)
	var writeMu sync.Mutex
	write := func(m wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readCommands(conn, sess, write)
	}()
	defer func() {
		cancel()
		_ = conn.Close()
		<-done
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"),
					time.Now().Add(wsWriteWait))
				writeMu.Unlock()
				return
			}
			if err := write(wsMessage{Type: "state", State: &snap}); err != nil {
				return
			}
		case <-ping.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readCommands applies client actions until the connection drops.
func (s *Server) readCommands(conn *websocket.Conn, sess *game.Session, write func(wsMessage) error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("challengeId", sess.ID()).Msg("websocket read")
			}
			return
		}
		switch cmd.Action {
		case "close":
			if !sess.Close() {
				_ = write(wsMessage{Type: "error", Error: "already_finished"})
			}
			continue
		case "select":
			if snap, applied := sess.Select(game.Point{X: cmd.X, Y: cmd.Y}); !applied {
				_ = write(wsMessage{Type: "error", Error: "invalid_transition", State: &snap})
			}
			continue
		}
		ev, known := wsActions[cmd.Action]
		if !known {
			_ = write(wsMessage{Type: "error", Error: "unknown_action"})
			continue
		}
		if ev == game.EventHit && s.requiresSelect(sess.ID()) {
			_ = write(wsMessage{Type: "error", Error: "select_required"})
			continue
		}
		if snap, applied := sess.Do(ev); !applied {
			_ = write(wsMessage{Type: "error", Error: "invalid_transition", State: &snap})
		}
	}
}
