package store

import (
	"context"
	"errors"
	"testing"

	"cloudsync/internal/models"
)

func TestCreateAndGetUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "Alice@Example.com", HashedPassword: "hash"}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected id")
	}

	got, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Email != "alice@example.com" || got.HashedPassword != "hash" {
		t.Fatalf("unexpected user: %#v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at")
	}

	missing, err := st.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %#v", missing)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateUser(ctx, &models.User{Username: "alice", Email: "a@example.com", HashedPassword: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := st.CreateUser(ctx, &models.User{Username: "alice", Email: "b@example.com", HashedPassword: "h"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for username, got %v", err)
	}
	err = st.CreateUser(ctx, &models.User{Username: "carol", Email: "A@example.com", HashedPassword: "h"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email, got %v", err)
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
}
