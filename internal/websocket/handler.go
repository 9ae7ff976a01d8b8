package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/taskhouse/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams that user's
// change notifications until the socket closes.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("websocket connected", "user_id", userID)
		NewClient(hub, conn, userID).Run(r.Context())
	}
}
