package checklist

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldmed/pma/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "medic"))
	g.GET("/checklist", h.GetStatus)
	g.GET("/checklist/log", h.GetLog)
	g.GET("/checklist/reset", h.RequestReset)
	g.POST("/checklist/toggle", h.Toggle)
	g.POST("/checklist/reset", h.Reset)
}

func (h *Handler) GetStatus(c echo.Context) error {
	categories, global, err := h.svc.Status(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"categories": categories,
		"completion": global,
	})
}

func (h *Handler) Toggle(c echo.Context) error {
	var body struct {
		Item string `json:"item"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Item == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "item is required")
	}
	actor := auth.ActorNameFromContext(c.Request().Context())
	checked, err := h.svc.Toggle(c.Request().Context(), body.Item, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item":    body.Item,
		"checked": checked,
	})
}

func (h *Handler) GetLog(c echo.Context) error {
	entries, err := h.svc.Log(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) RequestReset(c echo.Context) error {
	preview, err := h.svc.RequestReset(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *Handler) Reset(c echo.Context) error {
	actor := auth.ActorNameFromContext(c.Request().Context())
	if err := h.svc.Reset(c.Request().Context(), actor); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
