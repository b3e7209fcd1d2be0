package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var (
	// ErrPasswordRequired is returned when a new password is submitted without the current one.
	ErrPasswordRequired = errors.New("current password is required to set a new password")
	ErrPasswordTooLong  = errors.New("new_password must be at most 72 bytes")
)

// AccountService lets an authenticated user edit their own account.
type AccountService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

func NewAccountService(users ports.UserRepository, log zerolog.Logger) *AccountService {
	return &AccountService{users: users, log: log}
}

// UpdateSettings applies in to the caller's own account and returns the
// updated user.
func (s *AccountService) UpdateSettings(ctx context.Context, identity *domain.Identity, in ports.UpdateSettingsInput) (*domain.User, error) {
	if identity == nil || identity.User == nil {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, identity.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserInactive
		}
		return nil, fmt.Errorf("update settings: %w", err)
	}

	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, ErrPasswordRequired
		}
		if len(in.NewPassword) > maxPasswordBytes {
			return nil, ErrPasswordTooLong
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
			return nil, domain.ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("update settings: hash password: %w", err)
		}
		if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}
		user.PasswordHash = string(hash)
		s.log.Info().Str("user_id", user.ID).Msg("password changed")
	}

	if name := strings.TrimSpace(in.FullName); name != "" && name != user.FullName {
		user.FullName = name
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}
	}

	return user, nil
}

// PositionService serves the read-only position catalogue.
type PositionService struct {
	positions ports.PositionRepository
}

func NewPositionService(positions ports.PositionRepository) *PositionService {
	return &PositionService{positions: positions}
}

func (s *PositionService) List(ctx context.Context) ([]*domain.Position, error) {
	return s.positions.List(ctx)
}

func (s *PositionService) Get(ctx context.Context, id string) (*domain.Position, error) {
	return s.positions.FindByID(ctx, id)
}
