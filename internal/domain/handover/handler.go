package handover

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldmed/pma/internal/domain/roster"
	"github.com/fieldmed/pma/internal/platform/auth"
)

type Handler struct {
	roster *roster.Service
}

func NewHandler(rosterSvc *roster.Service) *Handler {
	return &Handler{roster: rosterSvc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "medic"))
	g.GET("/handover-report", h.Report)
}

// Report returns the full post snapshot for the report renderer. No
// filtering: a handover covers everyone admitted during the shift.
func (h *Handler) Report(c echo.Context) error {
	records, err := h.roster.List(c.Request().Context(), roster.ListFilter{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load roster")
	}
	return c.JSON(http.StatusOK, Build(records, time.Now().UTC()))
}
