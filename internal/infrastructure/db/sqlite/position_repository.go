package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// PositionRepository implements ports.PositionRepository using SQLite.
// Permission tables are stored as JSON text.
type PositionRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPositionRepository(db *sql.DB, timeout time.Duration) *PositionRepository {
	return &PositionRepository{db: db, timeout: timeoutOr(timeout)}
}

func (r *PositionRepository) FindByID(ctx context.Context, id string) (*domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, "SELECT id, name, level, permissions FROM positions WHERE id = ?", id)
	return scanPosition(row)
}

// List returns every position ordered by descending level.
func (r *PositionRepository) List(ctx context.Context) ([]*domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, "SELECT id, name, level, permissions FROM positions ORDER BY level DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating positions: %w", err)
	}
	return out, nil
}

func (r *PositionRepository) Upsert(ctx context.Context, p *domain.Position) error {
	if p.ID == "" {
		return fmt.Errorf("upsert position: empty id")
	}
	p.Normalize()

	perms, err := json.Marshal(p.Permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO positions (id, name, level, permissions) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, level = excluded.level, permissions = excluded.permissions`,
		p.ID, p.Name, p.Level, string(perms),
	)
	if err != nil {
		return fmt.Errorf("upserting position: %w", err)
	}
	return nil
}

func scanPosition(s scanner) (*domain.Position, error) {
	var (
		p     domain.Position
		perms string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Level, &perms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("scanning position: %w", err)
	}
	if perms != "" {
		if err := json.Unmarshal([]byte(perms), &p.Permissions); err != nil {
			return nil, fmt.Errorf("position %s: decoding permissions: %w", p.ID, err)
		}
	}
	p.Normalize()
	return &p, nil
}
