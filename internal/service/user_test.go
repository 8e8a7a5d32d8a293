package service

import (
	"context"
	"testing"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user", func(t *testing.T) {
		svc := NewUserService(newMemStore())
		user, err := svc.Register(ctx, RegisterInput{SlackID: "U1", Name: "Arpan", GPT4UsageAllowed: true})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if user.SlackID != "U1" || !user.IsActive {
			t.Fatalf("unexpected user: %+v", user)
		}
		if !user.GPT4UsageAllowed {
			t.Fatal("expected gpt4 flag set")
		}
	})

	t.Run("duplicate slack_id fails with already_exists", func(t *testing.T) {
		store := newMemStore()
		svc := NewUserService(store)
		if _, err := svc.Register(ctx, RegisterInput{SlackID: "U1", Name: "Arpan"}); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := svc.Register(ctx, RegisterInput{SlackID: "U1", Name: "Someone Else"})
		svcErr := requireKind(t, err, ErrAlreadyExists)
		if svcErr.Code != "already_exists" {
			t.Fatalf("unexpected code: %s", svcErr.Code)
		}
		if len(store.users) != 1 {
			t.Fatalf("expected 1 user row, got %d", len(store.users))
		}
	})

	t.Run("rejects empty identity key", func(t *testing.T) {
		svc := NewUserService(newMemStore())
		_, err := svc.Register(ctx, RegisterInput{Name: "No ID"})
		requireKind(t, err, ErrBadRequest)
	})
}

func TestUserReads(t *testing.T) {
	ctx := context.Background()

	t.Run("get missing user", func(t *testing.T) {
		svc := NewUserService(newMemStore())
		_, err := svc.Get(ctx, "nobody")
		requireKind(t, err, ErrNotFound)
	})

	t.Run("empty listing is not found", func(t *testing.T) {
		svc := NewUserService(newMemStore())
		_, err := svc.List(ctx, 0, 100)
		requireKind(t, err, ErrNotFound)
	})

	t.Run("listing pages", func(t *testing.T) {
		store := newMemStore()
		svc := NewUserService(store)
		for _, id := range []string{"U1", "U2", "U3"} {
			if _, err := svc.Register(ctx, RegisterInput{SlackID: id, Name: id}); err != nil {
				t.Fatalf("register %s: %v", id, err)
			}
		}
		users, err := svc.List(ctx, 0, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
	})
}
