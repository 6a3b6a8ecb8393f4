package billing

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
	g := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	g.POST("/invoices", h.Create)
	g.PUT("/invoices/:id", h.Update)
	g.POST("/invoices/:id/cancel", h.Cancel)
	g.POST("/invoices/:id/payments", h.AddPayment)

	ro := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	ro.GET("/invoices/:id", h.Get)
	ro.GET("/patients/:id/invoices", h.ListByPatient)
}

type invoiceRequest struct {
	PatientID     uuid.UUID   `json:"patient_id"`
	Items         []LineInput `json:"items"`
	DiscountCents int64       `json:"discount_cents"`
	TaxPercent    *float64    `json:"tax_percent,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
}

func (r invoiceRequest) params() InvoiceParams {
	return InvoiceParams{
		PatientID:     r.PatientID,
		Items:         r.Items,
		DiscountCents: r.DiscountCents,
		TaxPercent:    r.TaxPercent,
		Notes:         r.Notes,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req invoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.Create(c.Request().Context(), req.params())
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req invoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.Update(c.Request().Context(), id, req.params())
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

type paymentRequest struct {
	AmountCents int64   `json:"amount_cents"`
	Method      string  `json:"method"`
	Reference   *string `json:"reference,omitempty"`
}

func (h *Handler) AddPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	inv, err := h.svc.AddPayment(c.Request().Context(), id, req.AmountCents, req.Method, req.Reference, actor)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return clinicerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
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
