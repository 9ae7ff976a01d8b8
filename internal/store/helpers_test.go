package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/model"
)

type testStores struct {
	db       *database.DB
	users    *UserStore
	members  *MemberStore
	tasks    *TaskStore
	stats    *StatsStore
	sessions *SessionStore
}

// fixedNow is a Friday in ISO week 42 of 2026.
var fixedNow = time.Date(2026, time.October, 16, 14, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *testStores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := &testStores{
		db:       db,
		users:    NewUserStore(db),
		members:  NewMemberStore(db),
		tasks:    NewTaskStore(db),
		stats:    NewStatsStore(db, time.UTC),
		sessions: NewSessionStore(db),
	}
	clock := func() time.Time { return fixedNow }
	ts.tasks.SetClock(clock)
	ts.stats.SetClock(clock)
	ts.sessions.SetClock(clock)
	return ts
}

func createTestUser(t *testing.T, ts *testStores, username string) *model.User {
	t.Helper()
	u, err := ts.users.Create(context.Background(), username, "secret")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}

func createTestMember(t *testing.T, ts *testStores, ownerID int64, name string) *model.Member {
	t.Helper()
	m, err := ts.members.Add(context.Background(), &model.Member{Name: name, OwnerUserID: ownerID})
	if err != nil {
		t.Fatalf("add member %q: %v", name, err)
	}
	return m
}

func newTask(desc string) *model.Task {
	return &model.Task{
		Description:    desc,
		DueDate:        time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC),
		Priority:       model.PriorityMedium,
		Details:        "details",
		Responsibility: "kitchen",
	}
}

func countRows(t *testing.T, ts *testStores, query string, args ...any) int {
	t.Helper()
	var n int
	if err := ts.db.Get(&n, ts.db.Rebind(query), args...); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
