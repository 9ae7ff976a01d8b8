package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/dukerupert/taskhouse/internal/websocket"
)

type MemberHandler struct {
	memberStore *store.MemberStore
	taskStore   *store.TaskStore
	notifier    Notifier
	logger      *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, ts *store.TaskStore, n Notifier, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{memberStore: ms, taskStore: ts, notifier: n, logger: logger}
}

// ownedMember loads the member named in the path and writes a 404 unless it
// belongs to the acting user.
func (h *MemberHandler) ownedMember(w http.ResponseWriter, r *http.Request) (*model.Member, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	m, err := h.memberStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get member", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return nil, false
	}
	if m == nil || m.OwnerUserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "member not found")
		return nil, false
	}
	return m, true
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "failed to list members", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID := auth.UserID(r.Context())
	m, err := h.memberStore.Add(r.Context(), &model.Member{Name: req.Name, OwnerUserID: userID})
	if err != nil {
		writeStoreError(w, h.logger, "failed to add member", err)
		return
	}

	h.notifier.SendToUser(userID, websocket.NewMessage("member", "created", m.ID, map[string]any{"name": m.Name}))
	writeJSON(w, http.StatusCreated, m)
}

func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	m, ok := h.ownedMember(w, r)
	if !ok {
		return
	}

	if err := h.memberStore.Remove(r.Context(), m.ID); err != nil {
		writeStoreError(w, h.logger, "failed to remove member", err)
		return
	}

	h.logger.Info("member removed", "member_id", m.ID, "user_id", m.OwnerUserID)
	h.notifier.SendToUser(m.OwnerUserID, websocket.NewMessage("member", "removed", m.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) Stats(w http.ResponseWriter, r *http.Request) {
	m, ok := h.ownedMember(w, r)
	if !ok {
		return
	}

	st, err := h.memberStore.Stats(r.Context(), m.ID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get member stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *MemberHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	m, ok := h.ownedMember(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskStore.ListByAssignee(r.Context(), m.ID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to list member tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}
