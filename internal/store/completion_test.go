package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return database.Wrap(sqlDB, database.DialectSQLite), mock
}

func TestCompleteTaskRollsBackWhenStatisticsFail(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT assigned_to FROM task_assignments WHERE task_id = ?`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM task_assignments WHERE task_id = ?`)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE task_id = ?`)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO member_stats`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO statistics`).
		WithArgs(int64(1)).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := completeTask(context.Background(), db, 10, 1, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTaskRollsBackWhenHistoryFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT assigned_to FROM task_assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to"}))
	mock.ExpectExec(`DELETE FROM task_assignments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO statistics`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO task_completion_history .* RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := completeTask(context.Background(), db, 10, 1, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoGeneratedKey)
	assert.Equal(t, KindInvariant, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTaskMissingTaskTouchesNothing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT assigned_to FROM task_assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to"}))
	mock.ExpectExec(`DELETE FROM task_assignments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM tasks`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := completeTask(context.Background(), db, 10, 1, time.Now())
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateForMemberRollsBackWhenCounterFails(t *testing.T) {
	db, mock := newMockDB(t)
	tasks := NewTaskStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM members`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO tasks .* RETURNING task_id`).
		WillReturnRows(sqlmock.NewRows([]string{"task_id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO task_assignments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO member_stats`).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	id, err := tasks.CreateForMember(context.Background(), newTask("dishes"), 1, 3)
	require.Error(t, err)
	assert.Zero(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRemoveRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	members := NewMemberStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_assignments WHERE assigned_to`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM member_stats`).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := members.Remove(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete member stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}
