package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
)

type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	model.User
	PasswordHash string `db:"password_hash"`
}

const userCols = `user_id, username, created_at`

// Create validates and stores a new account. The password is kept only as a
// bcrypt hash.
func (s *UserStore) Create(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, newError("create user", KindValidation, fmt.Errorf("%w: username and password are required", ErrInvalidInput))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, newError("create user", KindValidation, fmt.Errorf("%w: password is longer than %d bytes", ErrInvalidInput, auth.MaxPasswordBytes))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := insertReturningID(ctx, s.db, "user_id",
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, hash,
	)
	if database.IsUniqueViolation(err) {
		return nil, newError("create user", KindConflict, ErrDuplicateUser)
	}
	if err != nil {
		return nil, wrapInsert("create user", err)
	}
	return s.GetByID(ctx, id)
}

// Authenticate returns the user when username and password match, and nil
// otherwise. It does not say which of the two was wrong.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT `+userCols+`, password_hash FROM users WHERE username = ?`),
		strings.TrimSpace(username),
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	ok, err := auth.CheckPassword(row.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &row.User, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE user_id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}
