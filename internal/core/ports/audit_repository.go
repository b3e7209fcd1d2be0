package ports

import (
	"context"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// AuditRepository persists auth events to the audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
