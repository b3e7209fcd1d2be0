package ports

import (
	"context"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	// FindByEmail looks up a user by normalized email. Returns domain.ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// Update persists the mutable profile fields (full name, role, position, active flag).
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PositionRepository stores positions and their permission tables.
type PositionRepository interface {
	// FindByID returns domain.ErrPositionNotFound when absent.
	FindByID(ctx context.Context, id string) (*domain.Position, error)
	List(ctx context.Context) ([]*domain.Position, error)
	Upsert(ctx context.Context, position *domain.Position) error
}
