package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/dukerupert/taskhouse/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	notifier  Notifier
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, n Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, notifier: n, logger: logger}
}

// ownedTask loads the task named in the path. A task created by someone
// else is reported as missing.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	t, err := h.taskStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get task", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	if t == nil || t.CreatorUserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return t, true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f store.TaskFilter
	var err error
	if f.Assignment, err = store.ParseAssignment(q.Get("assignment")); err != nil {
		writeError(w, http.StatusBadRequest, "assignment must be personal, assigned or all")
		return
	}
	if p := q.Get("priority"); p != "" {
		if f.Priority, err = model.ParsePriority(p); err != nil {
			writeError(w, http.StatusBadRequest, "priority must be LOW, MEDIUM or HIGH")
			return
		}
	}
	if d := q.Get("due_before"); d != "" {
		due, err := time.Parse(time.DateOnly, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_before must be YYYY-MM-DD")
			return
		}
		f.DueBefore = &due
	}

	tasks, err := h.taskStore.List(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		writeStoreError(w, h.logger, "failed to list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description    string `json:"description"`
		DueDate        string `json:"due_date"`
		Priority       string `json:"priority"`
		Details        string `json:"details"`
		Responsibility string `json:"responsibility"`
		AssigneeID     *int64 `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	due, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "priority must be LOW, MEDIUM or HIGH")
		return
	}

	t := &model.Task{
		Description:    req.Description,
		DueDate:        due,
		Priority:       priority,
		Details:        req.Details,
		Responsibility: req.Responsibility,
	}
	userID := auth.UserID(r.Context())

	if req.AssigneeID != nil {
		_, err = h.taskStore.CreateForMember(r.Context(), t, userID, *req.AssigneeID)
	} else {
		_, err = h.taskStore.Create(r.Context(), t, userID)
	}
	if err != nil {
		writeStoreError(w, h.logger, "failed to create task", err)
		return
	}

	created, err := h.taskStore.GetByID(r.Context(), t.ID)
	if err != nil || created == nil {
		h.logger.Error("reload task", "error", err, "id", t.ID)
		created = t
	}

	extra := map[string]any{}
	if created.AssigneeMemberID != nil {
		extra["assignee_member_id"] = *created.AssigneeMemberID
	}
	h.notifier.SendToUser(userID, websocket.NewMessage("task", "created", created.ID, extra))
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	entry, err := h.taskStore.Complete(r.Context(), t.ID, userID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to complete task", err)
		return
	}

	extra := map[string]any{}
	if entry.MemberID != nil {
		extra["member_id"] = *entry.MemberID
	}
	h.logger.Info("task completed", "task_id", t.ID, "user_id", userID)
	h.notifier.SendToUser(userID, websocket.NewMessage("task", "completed", t.ID, extra))
	writeJSON(w, http.StatusOK, entry)
}

// Delete discards a task without recording a completion. Deleting a task
// that no longer exists succeeds.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	t, err := h.taskStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get task", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if t == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if t.CreatorUserID != userID {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.taskStore.Delete(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, "failed to delete task", err)
		return
	}

	h.notifier.SendToUser(userID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Assignee(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	memberID, err := h.taskStore.AssigneeOf(r.Context(), t.ID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get assignee", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":            t.ID,
		"assignee_member_id": memberID,
	})
}
