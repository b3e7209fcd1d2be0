package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crmadmin/access-core/internal/api/metrics"
	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      domain.Profile `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type permissionsResponse struct {
	Position    domain.PositionSummary `json:"position"`
	Permissions domain.Permissions     `json:"permissions"`
}

// Login authenticates a user and returns a signed access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTooManyAttempts):
			metrics.LoginsTotal.WithLabelValues(metrics.ResultThrottle).Inc()
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		}
		return err
	}
	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	return c.JSON(http.StatusOK, loginResponse{
		User:      domain.NewProfile(res.User, res.Position),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
	})
}

// Me returns the profile of the authenticated caller.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, id.Profile())
}

// Permissions returns the caller's effective permission table.
//
// @Summary      Effective permissions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  permissionsResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/permissions [get]
func (h *AuthHandler) Permissions(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissionsResponse{
		Position:    id.Position.Summary(),
		Permissions: id.Permissions,
	})
}
