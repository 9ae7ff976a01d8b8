package model

import "time"

type Statistics struct {
	UserID         int64 `json:"user_id" db:"user_id"`
	CompletedTasks int   `json:"completed_tasks" db:"completed_tasks"`
}

type CompletionHistoryEntry struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	TaskID      int64     `json:"task_id" db:"task_id"`
	MemberID    *int64    `json:"member_id" db:"member_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// WeekCount is one bucket of a weekly rollup. Start is the Monday that opens
// the ISO week.
type WeekCount struct {
	Year  int       `json:"year"`
	Week  int       `json:"week"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}
