package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// AuditRepository implements ports.AuditRepository using SQLite.
type AuditRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewAuditRepository(db *sql.DB, timeout time.Duration) *AuditRepository {
	return &AuditRepository{db: db, timeout: timeoutOr(timeout)}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, e *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_events (id, type, user_id, email, section, action, reason, remote_ip, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), nullString(e.UserID), e.Email,
		nullString(string(e.Section)), nullString(string(e.Action)),
		nullString(e.Reason), nullString(e.RemoteIP), formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("inserting auth event: %w", err)
	}
	return nil
}

// ListByUser returns the most recent events for userID, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuthEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, user_id, email, section, action, reason, remote_ip, timestamp
		 FROM auth_events WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing auth events: %w", err)
	}
	defer rows.Close()

	var out []domain.AuthEvent
	for rows.Next() {
		var (
			e                                     domain.AuthEvent
			typ, ts                               string
			uid, section, action, reason, address sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &uid, &e.Email, &section, &action, &reason, &address, &ts); err != nil {
			return nil, fmt.Errorf("scanning auth event: %w", err)
		}
		e.Type = domain.AuthEventType(typ)
		e.UserID = uid.String
		e.Section = domain.Section(section.String)
		e.Action = domain.Action(action.String)
		e.Reason = reason.String
		e.RemoteIP = address.String
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth events: %w", err)
	}
	return out, nil
}
