package medrecord

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor))
	g.POST("/records", h.Create)
	g.PUT("/records/:id", h.Update)
	g.POST("/records/:id/lock", h.Lock)
	g.POST("/records/:id/addenda", h.AddAddendum)
	g.PUT("/addenda/:id", h.UpdateAddendum)
	g.DELETE("/addenda/:id", h.DeleteAddendum)

	ro := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	ro.GET("/records/:id", h.Get)
	ro.GET("/queues/:id/record", h.GetByQueue)
	ro.GET("/patients/:id/records", h.ListByPatient)
}

type recordRequest struct {
	QueueID    uuid.UUID        `json:"queue_id"`
	Subjective *string          `json:"subjective,omitempty"`
	Objective  *string          `json:"objective,omitempty"`
	Assessment *string          `json:"assessment,omitempty"`
	Plan       *string          `json:"plan,omitempty"`
	Diagnoses  []DiagnosisInput `json:"diagnoses"`
}

func (r recordRequest) params() RecordParams {
	return RecordParams{
		QueueID:    r.QueueID,
		Subjective: r.Subjective,
		Objective:  r.Objective,
		Assessment: r.Assessment,
		Plan:       r.Plan,
		Diagnoses:  r.Diagnoses,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.Create(c.Request().Context(), req.params(), actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.Update(c.Request().Context(), id, req.params(), actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Lock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	rec, err := h.svc.Lock(c.Request().Context(), id, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetByQueue(c echo.Context) error {
	queueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetByQueue(c.Request().Context(), queueID)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) AddAddendum(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	a, err := h.svc.AddAddendum(c.Request().Context(), recordID, req.Content, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAddendum(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	a, err := h.svc.UpdateAddendum(c.Request().Context(), id, req.Content, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAddendum(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteAddendum(c.Request().Context(), id, actor); err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
