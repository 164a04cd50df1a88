package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/rollcall/internal/attendance"
	"github.com/dukerupert/rollcall/internal/model"
)

// SessionSource looks up the active session by public reference.
type SessionSource interface {
	Session(publicID string) (*model.Session, error)
}

// HandleSession upgrades GET /api/sessions/{id}/ws and streams updates for
// that session. The current state is sent first. Knowing the public
// reference is all that is required, as with check-in.
func HandleSession(hub *Hub, sessions SessionSource, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := sessions.Session(id); err != nil {
			if errors.Is(err, attendance.ErrNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			logger.Error("websocket session lookup", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		// The client is registered before the snapshot is read, so any change
		// after the read is also broadcast to it.
		client := NewClient(hub, conn, id)
		hub.Register(client)

		sess, err := sessions.Session(id)
		if err != nil {
			hub.Unregister(client)
			if errors.Is(err, attendance.ErrNotFound) {
				conn.Close(ws.StatusNormalClosure, "session closed")
				return
			}
			logger.Error("websocket session lookup", "error", err)
			conn.Close(ws.StatusInternalError, "")
			return
		}

		initial, err := json.Marshal(NewSessionMessage(sess))
		if err != nil {
			hub.Unregister(client)
			logger.Error("marshal initial message", "error", err)
			conn.Close(ws.StatusInternalError, "")
			return
		}
		if !hub.Send(client, initial) {
			logger.Debug("initial message not queued", "session", id)
		}

		client.Run(r.Context())
	}
}
