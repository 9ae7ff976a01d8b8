package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/taskhouse/internal/isoweek"
)

func TestCompletedThisWeek(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, ts, "alice")
	bob := createTestMember(t, ts, alice.ID, "Bob")

	id, _ := ts.tasks.CreateForMember(ctx, newTask("dishes"), alice.ID, bob.ID)
	if _, err := ts.stats.CompleteTask(ctx, id, alice.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := ts.stats.CompletedThisWeek(ctx, alice.ID)
	if err != nil {
		t.Fatalf("completed this week: %v", err)
	}
	if got != 1 {
		t.Errorf("completed this week = %d, want 1", got)
	}

	// Next Monday the count starts over.
	ts.stats.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 3) })
	got, _ = ts.stats.CompletedThisWeek(ctx, alice.ID)
	if got != 0 {
		t.Errorf("completed next week = %d, want 0", got)
	}
}

func TestWeeklyCompletions(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, ts, "alice")

	// Two completions two weeks ago, one this week.
	completeAt := func(at time.Time) {
		t.Helper()
		id, err := ts.tasks.Create(ctx, newTask("chore"), alice.ID)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ts.tasks.SetClock(func() time.Time { return at })
		if _, err := ts.tasks.Complete(ctx, id, alice.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	completeAt(fixedNow.AddDate(0, 0, -14))
	completeAt(fixedNow.AddDate(0, 0, -13))
	completeAt(fixedNow)
	// Outside the window.
	completeAt(fixedNow.AddDate(0, 0, -60))

	weeks, err := ts.stats.WeeklyCompletions(ctx, alice.ID, 4)
	if err != nil {
		t.Fatalf("weekly completions: %v", err)
	}
	if len(weeks) != 4 {
		t.Fatalf("len = %d, want 4", len(weeks))
	}

	_, current := fixedNow.ISOWeek()
	if weeks[3].Week != current {
		t.Errorf("last week = %d, want %d", weeks[3].Week, current)
	}
	want := []int{0, 2, 0, 1}
	for i, w := range weeks {
		if w.Count != want[i] {
			t.Errorf("week %d count = %d, want %d", w.Week, w.Count, want[i])
		}
		if i > 0 && !w.Start.After(weeks[i-1].Start) {
			t.Errorf("weeks not in ascending order at %d", i)
		}
	}
}

func TestWeeklyCompletionsAcrossYearBoundary(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, ts, "alice")

	ts.stats.SetClock(func() time.Time { return time.Date(2027, time.January, 6, 9, 0, 0, 0, time.UTC) })
	weeks, err := ts.stats.WeeklyCompletions(ctx, alice.ID, 3)
	if err != nil {
		t.Fatalf("weekly completions: %v", err)
	}

	// 2026 has 53 ISO weeks.
	want := []struct{ year, week int }{{2026, 52}, {2026, 53}, {2027, 1}}
	for i, w := range want {
		if weeks[i].Year != w.year || weeks[i].Week != w.week {
			t.Errorf("weeks[%d] = %d-W%02d, want %d-W%02d", i, weeks[i].Year, weeks[i].Week, w.year, w.week)
		}
	}
	if isoweek.WeeksInYear(2026) != 53 {
		t.Error("expected 2026 to have 53 ISO weeks")
	}
}

func TestWeeklyCompletionsRejectsOutOfRange(t *testing.T) {
	ts := setupTestDB(t)

	for _, weeks := range []int{0, -1, isoweek.MaxWindow + 1, 100000000} {
		_, err := ts.stats.WeeklyCompletions(context.Background(), 1, weeks)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("weeks %d: err = %v, want ErrInvalidInput", weeks, err)
		}
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, ts, "alice")

	first, _ := ts.tasks.Create(ctx, newTask("one"), alice.ID)
	second, _ := ts.tasks.Create(ctx, newTask("two"), alice.ID)
	ts.tasks.SetClock(func() time.Time { return fixedNow.Add(-time.Hour) })
	ts.tasks.Complete(ctx, first, alice.ID)
	ts.tasks.SetClock(func() time.Time { return fixedNow })
	ts.tasks.Complete(ctx, second, alice.ID)

	entries, err := ts.stats.History(ctx, alice.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].TaskID != second || entries[1].TaskID != first {
		t.Errorf("order = [%d %d], want [%d %d]", entries[0].TaskID, entries[1].TaskID, second, first)
	}
	if entries[0].MemberID != nil {
		t.Error("personal completion should have no member")
	}
	if !entries[0].CompletedAt.Equal(fixedNow) {
		t.Errorf("completed_at = %s, want %s", entries[0].CompletedAt, fixedNow)
	}
}

func TestInitializeUsers(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	createTestUser(t, ts, "alice")
	createTestUser(t, ts, "carol")

	n, err := ts.stats.InitializeUsers(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if n != 2 {
		t.Errorf("initialized = %d, want 2", n)
	}

	n, err = ts.stats.InitializeUsers(ctx)
	if err != nil {
		t.Fatalf("initialize again: %v", err)
	}
	if n != 0 {
		t.Errorf("second run initialized = %d, want 0", n)
	}
}

func TestReconcileMemberStats(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, ts, "alice")
	bob := createTestMember(t, ts, alice.ID, "Bob")

	done, _ := ts.tasks.CreateForMember(ctx, newTask("done"), alice.ID, bob.ID)
	ts.tasks.CreateForMember(ctx, newTask("open"), alice.ID, bob.ID)
	ts.tasks.Complete(ctx, done, alice.ID)

	if _, err := ts.db.Exec(`UPDATE member_stats SET ongoing_tasks = 7, completed_tasks = 0, total_tasks = 3 WHERE member_id = ?`, bob.ID); err != nil {
		t.Fatalf("force drift: %v", err)
	}

	st, err := ts.stats.ReconcileMemberStats(ctx, bob.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if st.Ongoing != 1 || st.Completed != 1 || st.Total != 2 {
		t.Errorf("reconciled = (%d,%d,%d), want (1,1,2)", st.Ongoing, st.Completed, st.Total)
	}
	stored, _ := ts.members.Stats(ctx, bob.ID)
	if *stored != *st {
		t.Errorf("stored = %+v, want %+v", *stored, *st)
	}

	n, err := ts.stats.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if n != 1 {
		t.Errorf("reconciled members = %d, want 1", n)
	}

	if _, err := ts.stats.ReconcileMemberStats(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing member err = %v, want ErrNotFound", err)
	}
}
