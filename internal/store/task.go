package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/jmoiron/sqlx"
)

type TaskStore struct {
	db  *database.DB
	now func() time.Time
}

func NewTaskStore(db *database.DB) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

// SetClock replaces the time source used to stamp completions.
func (s *TaskStore) SetClock(now func() time.Time) {
	s.now = now
}

// Assignment narrows a task listing by whether tasks have an assignee.
type Assignment string

const (
	AssignmentAny      Assignment = ""
	AssignmentPersonal Assignment = "personal"
	AssignmentAssigned Assignment = "assigned"
)

func ParseAssignment(s string) (Assignment, error) {
	switch a := Assignment(strings.ToLower(strings.TrimSpace(s))); a {
	case AssignmentAny, AssignmentPersonal, AssignmentAssigned:
		return a, nil
	case "all", "any":
		return AssignmentAny, nil
	default:
		return "", newError("parse assignment", KindValidation, fmt.Errorf("%w: unknown assignment filter %q", ErrInvalidInput, s))
	}
}

// TaskFilter narrows List. The zero value matches every task.
type TaskFilter struct {
	Assignment Assignment
	Priority   model.Priority
	DueBefore  *time.Time
}

const taskCols = `t.task_id, t.description, t.due_date, t.priority, t.details, t.responsibility, t.user_id, a.assigned_to AS assignee_member_id, t.created_at`

const taskFrom = `tasks t LEFT JOIN task_assignments a ON a.task_id = t.task_id`

// dateOnly drops the clock part so due dates compare as calendar days.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateTask(op string, t *model.Task) error {
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return newError(op, KindValidation, fmt.Errorf("%w: description is required", ErrInvalidInput))
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if !t.Priority.Valid() {
		return newError(op, KindValidation, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, t.Priority))
	}
	if t.DueDate.IsZero() {
		return newError(op, KindValidation, fmt.Errorf("%w: due date is required", ErrInvalidInput))
	}
	t.DueDate = dateOnly(t.DueDate)
	return nil
}

func insertTask(ctx context.Context, q sqlx.ExtContext, t *model.Task, ownerUserID int64) (int64, error) {
	return insertReturningID(ctx, q, "task_id",
		`INSERT INTO tasks (description, due_date, priority, details, user_id, responsibility) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Description, t.DueDate, string(t.Priority), t.Details, ownerUserID, t.Responsibility,
	)
}

// Create stores a personal task and returns its id. The id is also set on t.
func (s *TaskStore) Create(ctx context.Context, t *model.Task, ownerUserID int64) (int64, error) {
	if err := validateTask("create task", t); err != nil {
		return 0, err
	}

	id, err := insertTask(ctx, s.db, t, ownerUserID)
	if err != nil {
		return 0, wrapInsert("create task", err)
	}
	t.ID = id
	t.CreatorUserID = ownerUserID
	t.AssigneeMemberID = nil
	return id, nil
}

// CreateForMember stores a task assigned to one of createdBy's members and
// bumps that member's ongoing and total counters, all in one transaction.
func (s *TaskStore) CreateForMember(ctx context.Context, t *model.Task, createdBy, assigneeMemberID int64) (int64, error) {
	if err := validateTask("create task for member", t); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var owner int64
		err := tx.GetContext(ctx, &owner, tx.Rebind(`SELECT user_id FROM members WHERE id = ?`), assigneeMemberID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != createdBy) {
			return newError("create task for member", KindNotFound, fmt.Errorf("member %d: %w", assigneeMemberID, ErrNotFound))
		}
		if err != nil {
			return fmt.Errorf("query member owner: %w", err)
		}

		id, err = insertTask(ctx, tx, t, createdBy)
		if err != nil {
			return wrapInsert("create task for member", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO task_assignments (task_id, assigned_by, assigned_to, assigned_at) VALUES (?, ?, ?, ?)`),
			id, createdBy, assigneeMemberID, s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		return adjustMemberStat(ctx, tx, assigneeMemberID, 1, 0)
	})
	if err != nil {
		return 0, err
	}

	t.ID = id
	t.CreatorUserID = createdBy
	t.AssigneeMemberID = &assigneeMemberID
	return id, nil
}

// List returns every task ownerUserID created, personal and assigned alike,
// ordered by due date.
func (s *TaskStore) List(ctx context.Context, ownerUserID int64, f TaskFilter) ([]model.Task, error) {
	q := s.db.Builder().
		Select(taskCols).
		From(taskFrom).
		Where(sq.Eq{"t.user_id": ownerUserID})

	switch f.Assignment {
	case AssignmentPersonal:
		q = q.Where(sq.Eq{"a.task_id": nil})
	case AssignmentAssigned:
		q = q.Where(sq.NotEq{"a.task_id": nil})
	}
	if f.Priority != "" {
		q = q.Where(sq.Eq{"t.priority": string(f.Priority)})
	}
	if f.DueBefore != nil {
		q = q.Where(sq.Lt{"t.due_date": dateOnly(*f.DueBefore)})
	}

	query, args, err := q.OrderBy("t.due_date", "t.task_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

// ListByAssignee returns the tasks currently assigned to memberID.
func (s *TaskStore) ListByAssignee(ctx context.Context, memberID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(
		`SELECT `+taskCols+` FROM `+taskFrom+` WHERE a.assigned_to = ? ORDER BY t.due_date, t.task_id`),
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks by assignee: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+taskCols+` FROM `+taskFrom+` WHERE t.task_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// AssigneeOf returns the member the task is assigned to. It returns nil both
// for a personal task and for a task that does not exist; use GetByID to
// tell the two apart.
func (s *TaskStore) AssigneeOf(ctx context.Context, taskID int64) (*int64, error) {
	var memberID int64
	err := s.db.GetContext(ctx, &memberID, s.db.Rebind(`SELECT assigned_to FROM task_assignments WHERE task_id = ?`), taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignee: %w", err)
	}
	return &memberID, nil
}

// Complete removes the task and records the completion for userID. It fails
// with ErrTaskNotFound when the task is already gone.
func (s *TaskStore) Complete(ctx context.Context, taskID, userID int64) (*model.CompletionHistoryEntry, error) {
	return completeTask(ctx, s.db, taskID, userID, s.now())
}

// Delete discards a task without recording a completion. The assignment
// link goes with it; member counters, statistics and history are left as
// they are. Deleting a missing task is a no-op.
func (s *TaskStore) Delete(ctx context.Context, taskID int64) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_assignments WHERE task_id = ?`), taskID); err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE task_id = ?`), taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}
