package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// insertReturningID runs an INSERT written with ? placeholders and returns
// the generated key named by col. Both supported engines understand
// RETURNING, so there is no LastInsertId fallback.
func insertReturningID(ctx context.Context, q sqlx.ExtContext, col, query string, args ...any) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, q.Rebind(query+` RETURNING `+col), args...)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// wrapInsert turns a missing generated key into an invariant failure and
// wraps anything else as a persistence error.
func wrapInsert(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return newError(op, KindInvariant, ErrNoGeneratedKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
