package roster

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fieldmed/pma/internal/platform/auth"
	"github.com/fieldmed/pma/pkg/pagination"
)

type Handler struct {
	svc       *Service
	refresher *Refresher
}

// NewHandler builds the roster HTTP surface. refresher may be nil; elapsed
// labels are then computed per request.
func NewHandler(svc *Service, refresher *Refresher) *Handler {
	return &Handler{svc: svc, refresher: refresher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "medic"))
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:id", h.GetPatient)
	g.GET("/patients/:id/disposition-events", h.ListDispositionEvents)
	g.POST("/patients", h.AdmitPatient)
	g.POST("/patients/structured", h.AdmitStructured)
	g.PUT("/patients/:id", h.UpdatePatient)
	g.POST("/patients/:id/retriage", h.ReTriage)
	g.POST("/patients/:id/discharge", h.Discharge)
	g.DELETE("/patients/:id", auth.RequireRole("admin")(h.RemovePatient))
}

// patientView decorates a record with its display-only elapsed time.
type patientView struct {
	*PatientRecord
	Elapsed string `json:"elapsed"`
}

// view prefers the refresher's cached label; records admitted after the
// last refresh (or a nil refresher) get a freshly computed one.
func (h *Handler) view(p *PatientRecord, now time.Time) patientView {
	if h.refresher != nil {
		if label := h.refresher.Label(p.ID); label != "" {
			return patientView{PatientRecord: p, Elapsed: label}
		}
	}
	return patientView{PatientRecord: p, Elapsed: p.ElapsedLabel(now)}
}

func (h *Handler) AdmitPatient(c echo.Context) error {
	var p PatientRecord
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Admit(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, h.view(&p, time.Now().UTC()))
}

func (h *Handler) AdmitStructured(c echo.Context) error {
	var in StructuredIntake
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorNameFromContext(c.Request().Context())
	p, err := h.svc.AdmitStructured(c.Request().Context(), &in, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, h.view(p, time.Now().UTC()))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.view(p, time.Now().UTC()))
}

func (h *Handler) ListPatients(c echo.Context) error {
	f := ListFilter{Search: c.QueryParam("q")}
	if raw := c.QueryParam("status"); raw != "" {
		status := TriageStatus(raw)
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown triage status")
		}
		f.Status = &status
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}

	pg := pagination.FromContext(c)
	total := len(items)
	start := pg.Offset
	if start > total {
		start = total
	}
	end := start + pg.Limit
	if end > total {
		end = total
	}

	now := time.Now().UTC()
	views := make([]patientView, 0, end-start)
	for _, p := range items[start:end] {
		views = append(views, h.view(p, now))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p PatientRecord
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.view(&p, time.Now().UTC()))
}

func (h *Handler) ReTriage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status TriageStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.ReTriage(c.Request().Context(), id, body.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.view(p, time.Now().UTC()))
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Kind        Disposition `json:"kind"`
		Destination *string     `json:"destination,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorNameFromContext(c.Request().Context())
	p, err := h.svc.Discharge(c.Request().Context(), id, body.Kind, body.Destination, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, h.view(p, time.Now().UTC()))
}

func (h *Handler) ListDispositionEvents(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.DispositionEvents(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// httpError maps the roster error taxonomy onto HTTP statuses. Store errors
// pass through as 500 without retry; the caller decides what to do.
func httpError(err error) error {
	switch {
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
