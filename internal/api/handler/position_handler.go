package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

type PositionHandler struct {
	service ports.PositionService
}

func NewPositionHandler(service ports.PositionService) *PositionHandler {
	return &PositionHandler{service: service}
}

type listPositionsResponse struct {
	Items []*domain.Position `json:"items"`
}

// List returns every position with its permission table.
//
// @Summary      List positions
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listPositionsResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /positions [get]
func (h *PositionHandler) List(c echo.Context) error {
	positions, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	if positions == nil {
		positions = []*domain.Position{}
	}
	return c.JSON(http.StatusOK, listPositionsResponse{Items: positions})
}

// Get returns a single position.
//
// @Summary      Get a position
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Position ID"
// @Success      200  {object}  domain.Position
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /positions/{id} [get]
func (h *PositionHandler) Get(c echo.Context) error {
	position, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, position)
}
