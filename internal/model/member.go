package model

import "time"

type Member struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerUserID int64     `json:"owner_user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// MemberStat is the running tally of a member's assigned work. Ongoing plus
// Completed equals Total for every row written through the store.
type MemberStat struct {
	MemberID  int64 `json:"member_id" db:"member_id"`
	Ongoing   int   `json:"ongoing_tasks" db:"ongoing_tasks"`
	Completed int   `json:"completed_tasks" db:"completed_tasks"`
	Total     int   `json:"total_tasks" db:"total_tasks"`
}
