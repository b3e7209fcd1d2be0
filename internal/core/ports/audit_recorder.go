package ports

import "github.com/crmadmin/access-core/internal/core/domain"

// AuditRecorder accepts auth events without blocking the request path.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
