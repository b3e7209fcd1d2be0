package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crmadmin/access-core/internal/core/domain"
)

const userColumns = "id, email, password_hash, full_name, role, position_id, is_active, created_at, updated_at"

// UserRepository implements ports.UserRepository using SQLite.
type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeoutOr(timeout)}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", domain.NormalizeEmail(email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// Create inserts user. The ID is generated if empty.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.FullName, string(user.Role),
		nullPosition(user.PositionID), boolToInt(user.IsActive), formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Update modifies the user's mutable fields. The password hash is only
// changed through UpdatePassword.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, role = ?, position_id = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		domain.NormalizeEmail(user.Email), user.FullName, string(user.Role),
		nullPosition(user.PositionID), boolToInt(user.IsActive), formatTime(now), user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u                    domain.User
		role                 string
		positionID           sql.NullString
		isActive             int
		createdAt, updatedAt string
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role,
		&positionID, &isActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role, err = domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	if positionID.Valid {
		id := positionID.String
		u.PositionID = &id
	}
	u.IsActive = isActive != 0
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

func nullPosition(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return nullString(*id)
}
