package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"alfredoptarigan/resumatch/internal/models"
)

func TestUserRepository_CreateKeepsFirstUserForEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	first := &models.User{UserID: "user_1", Email: "jane@example.com", Name: "Jane", CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &models.User{UserID: "user_2", Email: "jane@example.com", Name: "Other", CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, dup); err != nil {
		t.Fatalf("duplicate create should not fail: %v", err)
	}

	got, err := repo.FindByEmail(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != "user_1" {
		t.Fatalf("expected original user id, got %s", got.UserID)
	}
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &models.User{UserID: "user_1", Email: "a@b.c", Name: "A", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	pic := "https://example.com/p.png"
	if err := repo.UpdateProfile(ctx, "user_1", "Alice", &pic); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FindByID(ctx, "user_1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Alice" || got.Picture == nil || *got.Picture != pic {
		t.Fatalf("profile not updated: %+v", got)
	}

	if err := repo.UpdateProfile(ctx, "user_missing", "X", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	session := &models.UserSession{
		SessionToken: "tok",
		UserID:       "user_1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != "user_1" {
		t.Fatalf("unexpected user id %s", got.UserID)
	}

	if err := repo.DeleteByToken(ctx, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteByToken(ctx, "tok"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := repo.FindByToken(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
