package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cuinc99/docdoc/internal/platform/auth"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/settings", h.List, auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	api.PUT("/settings/:key", h.Set, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) List(c echo.Context) error {
	values, err := h.store.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, values)
}

func (h *Handler) Set(c echo.Context) error {
	key := c.Param("key")
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.Set(c.Request().Context(), key, req.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
