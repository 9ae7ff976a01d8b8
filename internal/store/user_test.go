package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUserCreate(t *testing.T) {
	ts := setupTestDB(t)

	u, err := ts.users.Create(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want %q", u.Username, "alice")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}

	var hash string
	if err := ts.db.Get(&hash, `SELECT password_hash FROM users WHERE user_id = ?`, u.ID); err != nil {
		t.Fatalf("read hash: %v", err)
	}
	if hash == "secret" {
		t.Error("password stored in plain text")
	}
}

func TestUserCreateValidation(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()

	for _, tc := range []struct{ username, password string }{
		{"", "secret"},
		{"   ", "secret"},
		{"alice", ""},
		{"alice", "  "},
		{"alice", strings.Repeat("x", 73)},
	} {
		_, err := ts.users.Create(ctx, tc.username, tc.password)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Create(%q, %q) err = %v, want ErrInvalidInput", tc.username, tc.password, err)
		}
		if KindOf(err) != KindValidation {
			t.Errorf("kind = %v, want %v", KindOf(err), KindValidation)
		}
	}
	if n := countRows(t, ts, `SELECT COUNT(*) FROM users`); n != 0 {
		t.Errorf("users = %d, want 0", n)
	}
}

func TestUserCreateDuplicate(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()

	if _, err := ts.users.Create(ctx, "alice", "secret"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := ts.users.Create(ctx, "alice", "other")
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("err = %v, want ErrDuplicateUser", err)
	}
	if KindOf(err) != KindConflict {
		t.Errorf("kind = %v, want %v", KindOf(err), KindConflict)
	}
}

func TestUserAuthenticate(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()

	created := createTestUser(t, ts, "alice")

	u, err := ts.users.Authenticate(ctx, "alice", "wrong")
	if err != nil {
		t.Fatalf("authenticate wrong password: %v", err)
	}
	if u != nil {
		t.Error("expected nil user for wrong password")
	}

	u, err = ts.users.Authenticate(ctx, "nobody", "secret")
	if err != nil {
		t.Fatalf("authenticate unknown user: %v", err)
	}
	if u != nil {
		t.Error("expected nil user for unknown username")
	}

	u, err = ts.users.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID || u.Username != "alice" {
		t.Errorf("user = {%d, %q}, want {%d, %q}", u.ID, u.Username, created.ID, "alice")
	}
}

func TestUserGetByID(t *testing.T) {
	ts := setupTestDB(t)
	ctx := context.Background()

	created := createTestUser(t, ts, "alice")

	u, err := ts.users.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u == nil || u.Username != "alice" {
		t.Fatalf("user = %+v, want alice", u)
	}

	u, err = ts.users.GetByID(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if u != nil {
		t.Error("expected nil for missing user")
	}
}

func TestUserGetByUsername(t *testing.T) {
	ts := setupTestDB(t)
	created := createTestUser(t, ts, "alice")

	u, err := ts.users.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Errorf("user = %+v, want id %d", u, created.ID)
	}
}
