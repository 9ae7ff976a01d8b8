package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
	"github.com/jmoiron/sqlx"
)

type MemberStore struct {
	db *database.DB
}

func NewMemberStore(db *database.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, name, user_id, created_at`

func (s *MemberStore) List(ctx context.Context, ownerUserID int64) ([]model.Member, error) {
	var members []model.Member
	err := s.db.SelectContext(ctx, &members, s.db.Rebind(
		`SELECT `+memberCols+` FROM members WHERE user_id = ? ORDER BY id`),
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return members, nil
}

// Add inserts m and fills in its ID and CreatedAt.
func (s *MemberStore) Add(ctx context.Context, m *model.Member) (*model.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" || m.OwnerUserID == 0 {
		return nil, newError("add member", KindValidation, fmt.Errorf("%w: name and owner are required", ErrInvalidInput))
	}

	id, err := insertReturningID(ctx, s.db, "id",
		`INSERT INTO members (name, user_id) VALUES (?, ?)`,
		m.Name, m.OwnerUserID,
	)
	if err != nil {
		return nil, wrapInsert("add member", err)
	}

	created, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, newError("add member", KindInvariant, ErrNotFound)
	}
	*m = *created
	return m, nil
}

func (s *MemberStore) GetByID(ctx context.Context, id int64) (*model.Member, error) {
	var m model.Member
	err := s.db.GetContext(ctx, &m, s.db.Rebind(`SELECT `+memberCols+` FROM members WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

// Remove deletes the member together with its assignment links and
// counters. Tasks that were assigned to it stay with their creator as
// personal tasks.
func (s *MemberStore) Remove(ctx context.Context, memberID int64) error {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM task_assignments WHERE assigned_to = ?`), memberID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM member_stats WHERE member_id = ?`), memberID); err != nil {
			return fmt.Errorf("delete member stats: %w", err)
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM members WHERE id = ?`), memberID)
		if err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return newError("remove member", KindNotFound, ErrNotFound)
		}
		return nil
	})
	return err
}

// Stats returns the member's counters, or zeros when none have been
// recorded yet. The zero row is not persisted.
func (s *MemberStore) Stats(ctx context.Context, memberID int64) (*model.MemberStat, error) {
	st := model.MemberStat{MemberID: memberID}
	err := s.db.GetContext(ctx, &st, s.db.Rebind(
		`SELECT member_id, ongoing_tasks, completed_tasks, total_tasks FROM member_stats WHERE member_id = ?`),
		memberID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.MemberStat{MemberID: memberID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member stats: %w", err)
	}
	return &st, nil
}
