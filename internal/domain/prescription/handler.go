package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor))
	g.POST("/prescriptions", h.Create)
	g.PUT("/prescriptions/:id", h.Update)

	api.POST("/prescriptions/:id/dispense", h.Dispense, auth.RequireRole(auth.RoleReceptionist))

	ro := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	ro.GET("/prescriptions/:id", h.Get)
	ro.GET("/records/:id/prescription", h.GetByRecord)
}

type prescriptionRequest struct {
	RecordID uuid.UUID   `json:"record_id"`
	Notes    *string     `json:"notes,omitempty"`
	Items    []ItemInput `json:"items"`
}

func (r prescriptionRequest) params() Params {
	return Params{RecordID: r.RecordID, Notes: r.Notes, Items: r.Items}
}

func (h *Handler) Create(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rx, err := h.svc.Create(c.Request().Context(), req.params(), actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rx, err := h.svc.Update(c.Request().Context(), id, req.params(), actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rx, err := h.svc.Dispense(c.Request().Context(), id, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rx, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) GetByRecord(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rx, err := h.svc.GetByRecord(c.Request().Context(), recordID)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}
