package queue

import (
	"context"
	"net/http"
	"time"

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
	g := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	g.GET("/queues", h.List)
	g.GET("/queues/:id", h.Get)
	g.GET("/queues/:id/vitals", h.GetVitals)
	g.POST("/queues/:id/vitals", h.RecordVitals)
	g.PUT("/vitals/:id", h.UpdateVitals)
	g.DELETE("/vitals/:id", h.DeleteVitals)

	api.POST("/queues", h.Admit, auth.RequireRole(auth.RoleReceptionist))
	api.POST("/queues/:id/call", h.Call, auth.RequireRole(auth.RoleDoctor))
	api.POST("/queues/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))
	api.POST("/queues/:id/cancel", h.Cancel, auth.RequireRole(auth.RoleReceptionist))
	api.PUT("/queues/:id/status", h.SetStatus, auth.RequireRole(auth.RoleReceptionist))
}

type admitRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date,omitempty"`
	Priority  string    `json:"priority,omitempty"`
}

func (h *Handler) Admit(c echo.Context) error {
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	params := AdmitParams{DoctorID: req.DoctorID, PatientID: req.PatientID, Priority: req.Priority}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		params.Date = &date
	}
	entry, err := h.svc.Admit(c.Request().Context(), params)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entry, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) List(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	items, err := h.svc.ListByDoctorDate(c.Request().Context(), doctorID, date)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Call(c echo.Context) error {
	return h.doTransition(c, h.svc.Call)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.doTransition(c, h.svc.Complete)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.doTransition(c, h.svc.Cancel)
}

func (h *Handler) doTransition(c echo.Context,
	fn func(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Queue, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := fn(c.Request().Context(), id, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := h.svc.SetStatus(c.Request().Context(), id, req.Status, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) RecordVitals(c echo.Context) error {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var v VitalSign
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	out, err := h.svc.RecordVitals(c.Request().Context(), queueID, &v, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetVitals(c echo.Context) error {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVitalsByQueue(c.Request().Context(), queueID)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var v VitalSign
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.UpdateVitals(c.Request().Context(), id, &v)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DeleteVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteVitals(c.Request().Context(), id); err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
