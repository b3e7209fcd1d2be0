package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/crmadmin/access-core/internal/core/domain"
)

// ctxIdentity returns the identity attached by the access gate. Its absence
// means the route was mounted without the gate, which is treated as an
// unauthenticated request rather than a server error.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := domain.IdentityFrom(c.Request().Context())
	if !ok || id == nil || id.User == nil {
		return nil, domain.ErrUnauthenticated
	}
	return id, nil
}
