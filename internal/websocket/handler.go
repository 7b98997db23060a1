package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dadam-app/dadam/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and joins them to the caller's family room. It must run behind
// the auth middleware.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // app clients connect from a webview origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, FamilyRoom(ac.FamilyCode, ac.UserID))
		client.Run(r.Context())
	}
}
