package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/isoweek"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/jmoiron/sqlx"
)

// StatsStore reads and maintains completion statistics. Week boundaries are
// computed in loc.
type StatsStore struct {
	db  *database.DB
	loc *time.Location
	now func() time.Time
}

func NewStatsStore(db *database.DB, loc *time.Location) *StatsStore {
	if loc == nil {
		loc = time.Local
	}
	return &StatsStore{db: db, loc: loc, now: time.Now}
}

// SetClock replaces the time source used for completions and week windows.
func (s *StatsStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *StatsStore) Location() *time.Location {
	return s.loc
}

// CompleteTask runs the same completion transaction as TaskStore.Complete.
func (s *StatsStore) CompleteTask(ctx context.Context, taskID, userID int64) (*model.CompletionHistoryEntry, error) {
	return completeTask(ctx, s.db, taskID, userID, s.now())
}

// CompletedThisWeek counts the user's completions in the current ISO week.
func (s *StatsStore) CompletedThisWeek(ctx context.Context, userID int64) (int, error) {
	week := isoweek.Containing(s.now().In(s.loc))

	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(
		`SELECT COUNT(*) FROM task_completion_history WHERE user_id = ? AND completed_at >= ? AND completed_at < ?`),
		userID, week.Start.UTC(), week.End().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("count completions this week: %w", err)
	}
	return count, nil
}

// WeeklyCompletions returns one bucket per ISO week for the last weeks
// weeks, oldest first, ending with the current week. Empty weeks count 0.
func (s *StatsStore) WeeklyCompletions(ctx context.Context, userID int64, weeks int) ([]model.WeekCount, error) {
	if weeks < 1 || weeks > isoweek.MaxWindow {
		return nil, newError("weekly completions", KindValidation, fmt.Errorf("%w: week count must be between 1 and %d, got %d", ErrInvalidInput, isoweek.MaxWindow, weeks))
	}

	window := isoweek.Window(s.now().In(s.loc), weeks)
	from := window[0].Start
	to := window[len(window)-1].End()

	var stamps []time.Time
	err := s.db.SelectContext(ctx, &stamps, s.db.Rebind(
		`SELECT completed_at FROM task_completion_history WHERE user_id = ? AND completed_at >= ? AND completed_at < ?`),
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}

	counts := make([]model.WeekCount, len(window))
	for i, w := range window {
		counts[i] = model.WeekCount{Year: w.Year, Week: w.Week, Start: w.Start}
	}
	for _, ts := range stamps {
		for i, w := range window {
			if w.Contains(ts) {
				counts[i].Count++
				break
			}
		}
	}
	return counts, nil
}

// UserStatistics returns the user's aggregate, or zeros when the user has
// never completed a task.
func (s *StatsStore) UserStatistics(ctx context.Context, userID int64) (*model.Statistics, error) {
	var st model.Statistics
	err := s.db.GetContext(ctx, &st, s.db.Rebind(`SELECT user_id, completed_tasks FROM statistics WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.Statistics{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return &st, nil
}

// History returns the user's most recent completions, newest first.
func (s *StatsStore) History(ctx context.Context, userID int64, limit int) ([]model.CompletionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []model.CompletionHistoryEntry
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(
		`SELECT id, user_id, task_id, member_id, completed_at FROM task_completion_history
		WHERE user_id = ? ORDER BY completed_at DESC, id DESC LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query completion history: %w", err)
	}
	return entries, nil
}

// InitializeUsers creates a zero statistics row for every user that lacks
// one and returns how many were created.
func (s *StatsStore) InitializeUsers(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO statistics (user_id, completed_tasks)
		SELECT u.user_id, 0 FROM users u
		WHERE NOT EXISTS (SELECT 1 FROM statistics st WHERE st.user_id = u.user_id)`)
	if err != nil {
		return 0, fmt.Errorf("initialize statistics: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ReconcileMemberStats recomputes a member's counters from live assignments
// and completion history, replacing whatever drifted values were stored.
func (s *StatsStore) ReconcileMemberStats(ctx context.Context, memberID int64) (*model.MemberStat, error) {
	st := &model.MemberStat{MemberID: memberID}
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM members WHERE id = ?`), memberID)
		if err != nil {
			return fmt.Errorf("query member: %w", err)
		}
		if exists == 0 {
			return newError("reconcile member stats", KindNotFound, ErrNotFound)
		}

		if err := tx.GetContext(ctx, &st.Ongoing, tx.Rebind(
			`SELECT COUNT(*) FROM task_assignments WHERE assigned_to = ?`), memberID); err != nil {
			return fmt.Errorf("count assignments: %w", err)
		}
		if err := tx.GetContext(ctx, &st.Completed, tx.Rebind(
			`SELECT COUNT(*) FROM task_completion_history WHERE member_id = ?`), memberID); err != nil {
			return fmt.Errorf("count completions: %w", err)
		}
		st.Total = st.Ongoing + st.Completed

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO member_stats (member_id, ongoing_tasks, completed_tasks, total_tasks)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (member_id) DO UPDATE SET
				ongoing_tasks = excluded.ongoing_tasks,
				completed_tasks = excluded.completed_tasks,
				total_tasks = excluded.total_tasks`),
			memberID, st.Ongoing, st.Completed, st.Total,
		)
		if err != nil {
			return fmt.Errorf("write member stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ReconcileAll reconciles every member and returns how many were processed.
func (s *StatsStore) ReconcileAll(ctx context.Context) (int, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM members ORDER BY id`); err != nil {
		return 0, fmt.Errorf("query members: %w", err)
	}
	for _, id := range ids {
		if _, err := s.ReconcileMemberStats(ctx, id); err != nil {
			return 0, fmt.Errorf("reconcile member %d: %w", id, err)
		}
	}
	return len(ids), nil
}
