package scheduling

import (
	"net/http"
	"time"

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
	g := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	g.GET("/schedules", h.List)
	g.GET("/schedules/:id", h.Get)

	w := api.Group("", auth.RequireRole(auth.RoleDoctor))
	w.POST("/schedules", h.Create)
	w.PUT("/schedules/:id", h.Update)
	w.PATCH("/schedules/:id/availability", h.ToggleAvailability)
}

type scheduleRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Available *bool     `json:"available"`
	Notes     *string   `json:"notes"`
}

func (r *scheduleRequest) toSchedule() (*Schedule, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return &Schedule{
		DoctorID:  r.DoctorID,
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Available: available,
		Notes:     r.Notes,
	}, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := req.toSchedule()
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), sched, actor); err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sched)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sched, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		from := time.Time{}
		if f := c.QueryParam("from"); f != "" {
			from, err = time.Parse("2006-01-02", f)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
			}
		}
		items, total, err := h.svc.ListByDoctor(ctx, did, from, pg.Limit, pg.Offset)
		if err != nil {
			return clinicerr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	items, total, err := h.svc.ListByDate(ctx, date, pg.Limit, pg.Offset)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in, err := req.toSchedule()
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sched, err := h.svc.Update(c.Request().Context(), id, in, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ToggleAvailability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	sched, err := h.svc.ToggleAvailability(c.Request().Context(), id, req.Available, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}
