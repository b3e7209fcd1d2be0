package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/crmadmin/access-core/internal/core/domain"
)

func newUser(email string) *domain.User {
	pos := "pos-agent"
	return &domain.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		FullName:     "Test User",
		Role:         domain.RoleAgent,
		PositionID:   &pos,
		IsActive:     true,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB(t), 0)

	u := newUser("Agent@Example.com")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamps: %+v", u)
	}

	byEmail, err := repo.FindByEmail(ctx, "agent@example.COM")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != u.ID || byEmail.Email != "agent@example.com" {
		t.Fatalf("unexpected user %+v", byEmail)
	}
	if byEmail.PositionID == nil || *byEmail.PositionID != "pos-agent" {
		t.Fatalf("position id not stored")
	}

	byID, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Role != domain.RoleAgent || !byID.IsActive || byID.PasswordHash != "$2a$04$hash" {
		t.Fatalf("unexpected user %+v", byID)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t), 0)
	if _, err := repo.FindByEmail(context.Background(), "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "nope"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := repo.UpdatePassword(context.Background(), "nope", "h"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB(t), 0)

	if err := repo.Create(ctx, newUser("dup@x.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newUser("DUP@x.com")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserRepository_UpdateAndPassword(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB(t), 0)

	u := newUser("a@x.com")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	u.IsActive = false
	u.Role = domain.RoleManager
	u.PositionID = nil
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	got, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.IsActive || got.Role != domain.RoleManager || got.PositionID != nil {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.PasswordHash != "new-hash" {
		t.Fatalf("password not updated")
	}
}

func TestUserRepository_UnknownRoleIsError(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewUserRepository(db, 0)

	if _, err := db.Exec(`INSERT INTO users (id, email, role, created_at, updated_at) VALUES ('x', 'x@x.com', 'root', '', '')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.FindByID(ctx, "x"); err == nil || errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
