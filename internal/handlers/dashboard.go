package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/dashboard"
)

// DashboardHandler serves GET /api/dashboard.
type DashboardHandler struct {
	service *dashboard.Service
	logger  *slog.Logger
}

func NewDashboardHandler(log *slog.Logger, service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  log.With(slog.String("handler", "dashboard")),
	}
}

func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/api/dashboard", h.Summary)
}

// Summary returns the cached-state dashboard counts.
func (h *DashboardHandler) Summary(c echo.Context) error {
	summary, err := h.service.Summary(c.Request().Context())
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, summary)
}
