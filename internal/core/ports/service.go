package ports

import (
	"context"
	"time"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// LoginInput carries a login attempt from the transport layer.
type LoginInput struct {
	Email    string
	Password string
	RemoteIP string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	Position  *domain.Position
}

// AuthService issues tokens and resolves them back into identities.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Authenticate verifies a bearer token and loads the current user and position.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// UpdateSettingsInput carries changes a user makes to their own account.
// Empty fields are left unchanged; NewPassword requires CurrentPassword.
type UpdateSettingsInput struct {
	FullName        string
	CurrentPassword string
	NewPassword     string
}

// AccountService implements the account-settings section.
type AccountService interface {
	UpdateSettings(ctx context.Context, identity *domain.Identity, in UpdateSettingsInput) (*domain.User, error)
}

// PositionService exposes the read-only position catalogue.
type PositionService interface {
	List(ctx context.Context) ([]*domain.Position, error)
	Get(ctx context.Context, id string) (*domain.Position, error)
}
