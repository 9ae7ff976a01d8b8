package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority accepts any casing of LOW, MEDIUM or HIGH. An empty string
// maps to MEDIUM.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is an open piece of work. A nil AssigneeMemberID means the task is
// personal to its creator.
type Task struct {
	ID               int64     `json:"id" db:"task_id"`
	Description      string    `json:"description" db:"description"`
	DueDate          time.Time `json:"due_date" db:"due_date"`
	Priority         Priority  `json:"priority" db:"priority"`
	Details          string    `json:"details" db:"details"`
	Responsibility   string    `json:"responsibility" db:"responsibility"`
	CreatorUserID    int64     `json:"creator_user_id" db:"user_id"`
	AssigneeMemberID *int64    `json:"assignee_member_id" db:"assignee_member_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (t Task) Assigned() bool {
	return t.AssigneeMemberID != nil
}
