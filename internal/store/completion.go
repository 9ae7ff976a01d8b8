package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/jmoiron/sqlx"
)

// completeTask is the single completion transaction behind both
// TaskStore.Complete and StatsStore.CompleteTask. The task row is deleted
// first so a second completion of the same task affects zero rows and
// fails before any counter moves.
func completeTask(ctx context.Context, db *database.DB, taskID, userID int64, at time.Time) (*model.CompletionHistoryEntry, error) {
	entry := &model.CompletionHistoryEntry{
		UserID:      userID,
		TaskID:      taskID,
		CompletedAt: at.UTC(),
	}

	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		assignee, err := assigneeTx(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_assignments WHERE task_id = ?`), taskID); err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE task_id = ?`), taskID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return newError("complete task", KindNotFound, ErrTaskNotFound)
		}

		if assignee != nil {
			if err := adjustMemberStat(ctx, tx, *assignee, -1, 1); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO statistics (user_id, completed_tasks) VALUES (?, 1)
			ON CONFLICT (user_id) DO UPDATE SET completed_tasks = statistics.completed_tasks + 1`),
			userID,
		)
		if err != nil {
			return fmt.Errorf("increment statistics: %w", err)
		}

		var memberArg any
		if assignee != nil {
			memberArg = *assignee
		}
		id, err := insertReturningID(ctx, tx, "id",
			`INSERT INTO task_completion_history (user_id, task_id, member_id, completed_at) VALUES (?, ?, ?, ?)`,
			userID, taskID, memberArg, entry.CompletedAt,
		)
		if err != nil {
			return wrapInsert("insert completion history", err)
		}
		entry.ID = id
		entry.MemberID = assignee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// assigneeTx returns the member the task is assigned to, or nil.
func assigneeTx(ctx context.Context, tx *sqlx.Tx, taskID int64) (*int64, error) {
	var memberID int64
	err := tx.GetContext(ctx, &memberID, tx.Rebind(`SELECT assigned_to FROM task_assignments WHERE task_id = ?`), taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assignee: %w", err)
	}
	return &memberID, nil
}
