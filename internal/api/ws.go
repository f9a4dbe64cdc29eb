package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/party"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	// Snapshots carry no secrets and the API is CORS-open; origin checks
	// would only break local frontends.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// handleSubscribe upgrades the connection, replies with the current full
// snapshot, then streams the party's events in commit order. Unknown codes
// are rejected with 404 before the upgrade.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	code := party.NormalizeCode(r.PathValue("code"))

	// Subscribe before reading the snapshot so events committed in between
	// are not missed; anything that arrives before the snapshot write is
	// superseded by it.
	sub := s.broker.Subscribe(code)
	defer s.broker.Unsubscribe(sub)

	snap, err := s.coord.Snapshot(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "code", code, "error", err)
		return
	}
	defer conn.Close()

	slog.Info("viewer subscribed", "code", code, "remote_addr", r.RemoteAddr)

	if err := writeEvent(conn, broadcast.Event{Type: party.EventSnapshot, Code: code, Payload: snap}); err != nil {
		return
	}

	// Reader goroutine: we never expect client messages, but reading is the
	// only way to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sub.C:
			if err := writeEvent(conn, ev); err != nil {
				slog.Info("viewer disconnected", "code", code, "error", err)
				return
			}
		case <-done:
			slog.Info("viewer disconnected", "code", code)
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev broadcast.Event) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(ev)
}
