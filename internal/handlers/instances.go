package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/instances"
)

// InstancesHandler serves the /api/instances surface.
type InstancesHandler struct {
	service *instances.Service
	logger  *slog.Logger
}

func NewInstancesHandler(log *slog.Logger, service *instances.Service) *InstancesHandler {
	return &InstancesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "instances")),
	}
}

func (h *InstancesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/instances")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id", h.Delete)
	group.GET("/:id/status", h.Status)
	group.POST("/sync", h.Sync)
}

// Sync refreshes every cached status from the gateway listings and returns
// the updated records.
func (h *InstancesHandler) Sync(c echo.Context) error {
	items, err := h.service.SyncStatuses(c.Request().Context())
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *InstancesHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *InstancesHandler) Create(c echo.Context) error {
	var req instances.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *InstancesHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return translateError(h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Status triggers a live refresh against the gateway and returns the
// updated record. Gateway failures surface as status "unknown", not errors.
func (h *InstancesHandler) Status(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.service.RefreshStatus(c.Request().Context(), id)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}
