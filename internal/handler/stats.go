package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/isoweek"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/dukerupert/taskhouse/internal/store"
)

type StatsHandler struct {
	statsStore   *store.StatsStore
	defaultWeeks int
	logger       *slog.Logger
}

func NewStatsHandler(ss *store.StatsStore, defaultWeeks int, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{statsStore: ss, defaultWeeks: defaultWeeks, logger: logger}
}

func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	st, err := h.statsStore.UserStatistics(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get statistics", err)
		return
	}
	week, err := h.statsStore.CompletedThisWeek(r.Context(), userID)
	if err != nil {
		writeStoreError(w, h.logger, "failed to count this week", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":         st.UserID,
		"completed_tasks": st.CompletedTasks,
		"this_week":       week,
	})
}

// ThisWeek reports the current ISO week and its completion count.
func (h *StatsHandler) ThisWeek(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.statsStore.WeeklyCompletions(r.Context(), auth.UserID(r.Context()), 1)
	if err != nil {
		writeStoreError(w, h.logger, "failed to count this week", err)
		return
	}
	writeJSON(w, http.StatusOK, weeks[0])
}

func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	weeks := h.defaultWeeks
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > isoweek.MaxWindow {
			writeError(w, http.StatusBadRequest, "weeks must be between 1 and "+strconv.Itoa(isoweek.MaxWindow))
			return
		}
		weeks = n
	}

	counts, err := h.statsStore.WeeklyCompletions(r.Context(), auth.UserID(r.Context()), weeks)
	if err != nil {
		writeStoreError(w, h.logger, "failed to compute weekly completions", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.statsStore.History(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get history", err)
		return
	}
	if entries == nil {
		entries = []model.CompletionHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
