// Package seed loads development fixtures of positions and users from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

// Fixture is the on-disk seed format.
type Fixture struct {
	Positions []PositionFixture `yaml:"positions"`
	Users     []UserFixture     `yaml:"users"`
}

type PositionFixture struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Level       int                 `yaml:"level"`
	Permissions map[string][]string `yaml:"permissions"`
}

type UserFixture struct {
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	FullName   string `yaml:"full_name"`
	Role       string `yaml:"role"`
	PositionID string `yaml:"position_id"`
	Active     *bool  `yaml:"active"`
}

// Result reports what Apply changed.
type Result struct {
	Positions    int
	UsersCreated int
	UsersSkipped int
}

// LoadFile reads and decodes a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	for i, p := range f.Positions {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("position %d: id and name are required", i)
		}
		for _, actions := range p.Permissions {
			for _, a := range actions {
				if _, err := domain.ParseAction(a); err != nil {
					return nil, fmt.Errorf("position %s: %w", p.ID, err)
				}
			}
		}
	}
	for i, u := range f.Users {
		if domain.NormalizeEmail(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("user %d: email and password are required", i)
		}
		if _, err := domain.ParseRole(u.Role); err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
	}
	return &f, nil
}

func (p PositionFixture) toDomain() *domain.Position {
	pos := &domain.Position{
		ID:          p.ID,
		Name:        p.Name,
		Level:       p.Level,
		Permissions: make(domain.Permissions, len(p.Permissions)),
	}
	for section, actions := range p.Permissions {
		m := make(map[domain.Action]bool, len(actions))
		for _, a := range actions {
			m[domain.Action(a)] = true
		}
		pos.Permissions[domain.Section(section)] = m
	}
	pos.Normalize()
	return pos
}

// Apply upserts every position and creates users that do not exist yet.
// Existing users are left untouched, so re-running a seed never resets a
// changed password.
func Apply(ctx context.Context, f *Fixture, users ports.UserRepository, positions ports.PositionRepository, log zerolog.Logger) (Result, error) {
	var res Result

	for _, p := range f.Positions {
		if err := positions.Upsert(ctx, p.toDomain()); err != nil {
			return res, fmt.Errorf("seeding position %s: %w", p.ID, err)
		}
		res.Positions++
	}

	for _, u := range f.Users {
		email := domain.NormalizeEmail(u.Email)
		_, err := users.FindByEmail(ctx, email)
		if err == nil {
			res.UsersSkipped++
			continue
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return res, fmt.Errorf("seeding user %s: %w", email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return res, fmt.Errorf("hashing password for %s: %w", email, err)
		}
		role, _ := domain.ParseRole(u.Role)
		user := &domain.User{
			Email:        email,
			PasswordHash: string(hash),
			FullName:     u.FullName,
			Role:         role,
			IsActive:     u.Active == nil || *u.Active,
		}
		if u.PositionID != "" {
			id := u.PositionID
			user.PositionID = &id
		}
		if err := users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("seeding user %s: %w", email, err)
		}
		res.UsersCreated++
		log.Info().Str("email", email).Str("role", string(role)).Msg("seed user created")
	}

	return res, nil
}
