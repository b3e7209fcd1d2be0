package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

type updateSettingsRequest struct {
	FullName        string `json:"full_name"        validate:"omitempty,max=200"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"     validate:"omitempty,min=8,max=72,maxbytes=72"`
}

// GetSettings returns the caller's own account settings.
//
// @Summary      Get account settings
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /account/settings [get]
func (h *AccountHandler) GetSettings(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id.Profile())
}

// UpdateSettings changes the caller's display name and, when the current
// password is supplied, their password.
//
// @Summary      Update account settings
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateSettingsRequest  true  "Settings to change"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /account/settings [put]
func (h *AccountHandler) UpdateSettings(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.UpdateSettings(c.Request().Context(), id, ports.UpdateSettingsInput{
		FullName:        req.FullName,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, domain.NewProfile(user, id.Position))
}
