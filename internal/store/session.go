package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
)

type SessionStore struct {
	db  *database.DB
	now func() time.Time
}

func NewSessionStore(db *database.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// SetClock replaces the time source used for expiry.
func (s *SessionStore) SetClock(now func() time.Time) {
	s.now = now
}

const sessionCols = `id, token, user_id, expires_at, created_at`

// Create issues a session with a crypto-random token that expires after ttl.
func (s *SessionStore) Create(ctx context.Context, userID int64, ttl time.Duration) (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	now := s.now().UTC()

	id, err := insertReturningID(ctx, s.db, "id",
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, now.Add(ttl), now,
	)
	if err != nil {
		return nil, wrapInsert("create session", err)
	}

	var sess model.Session
	err = s.db.GetContext(ctx, &sess, s.db.Rebind(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// GetByToken returns the session for the given token, or nil if expired or not found.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	err := s.db.GetContext(ctx, &sess, s.db.Rebind(
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > ?`),
		token, s.now().UTC(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
