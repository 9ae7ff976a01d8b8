package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/dukerupert/taskhouse/internal/websocket"
)

// Notifier pushes change notifications to a user's live sockets.
type Notifier interface {
	SendToUser(userID int64, msg websocket.Message)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a store failure onto an HTTP status. Validation,
// not-found and conflict errors carry their message to the client; anything
// else is logged and reported as a generic failure.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	switch store.KindOf(err) {
	case store.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case store.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case store.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
