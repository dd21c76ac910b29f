package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/users"
)

// UsersHandler serves the /api/users surface.
type UsersHandler struct {
	service *users.Service
	logger  *slog.Logger
}

func NewUsersHandler(log *slog.Logger, service *users.Service) *UsersHandler {
	return &UsersHandler{
		service: service,
		logger:  log.With(slog.String("handler", "users")),
	}
}

func (h *UsersHandler) Register(e *echo.Echo) {
	group := e.Group("/api/users")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func (h *UsersHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *UsersHandler) Create(c echo.Context) error {
	var req users.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *UsersHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Update handles role changes and activate/deactivate (soft delete).
func (h *UsersHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req users.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *UsersHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return translateError(h.logger, err)
	}
	h.logger.Info("user deleted", slog.Int64("id", id), actor(c))
	return c.NoContent(http.StatusNoContent)
}
