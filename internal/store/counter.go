package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// adjustMemberStat applies deltas to a member's counters inside tx. It is
// the only writer of member_stats besides reconciliation. Each counter is
// clamped at zero, total moves by the sum of the two deltas, and a missing
// row is created with total = ongoing + completed.
func adjustMemberStat(ctx context.Context, tx *sqlx.Tx, memberID int64, dOngoing, dCompleted int) error {
	dTotal := dOngoing + dCompleted
	ongoing, completed := max(dOngoing, 0), max(dCompleted, 0)

	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO member_stats (member_id, ongoing_tasks, completed_tasks, total_tasks)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (member_id) DO UPDATE SET
			ongoing_tasks = CASE WHEN member_stats.ongoing_tasks + ? < 0 THEN 0 ELSE member_stats.ongoing_tasks + ? END,
			completed_tasks = CASE WHEN member_stats.completed_tasks + ? < 0 THEN 0 ELSE member_stats.completed_tasks + ? END,
			total_tasks = CASE WHEN member_stats.total_tasks + ? < 0 THEN 0 ELSE member_stats.total_tasks + ? END`),
		memberID, ongoing, completed, ongoing+completed,
		dOngoing, dOngoing,
		dCompleted, dCompleted,
		dTotal, dTotal,
	)
	if err != nil {
		return fmt.Errorf("adjust member stats: %w", err)
	}
	return nil
}
