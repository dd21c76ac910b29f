package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/appointments"
)

// AppointmentsHandler serves the /api/appointments surface.
type AppointmentsHandler struct {
	service *appointments.Service
	logger  *slog.Logger
}

// CreateAppointmentRequest is the body for POST /api/appointments.
// scheduled_at is RFC 3339.
type CreateAppointmentRequest struct {
	ContactID   int64  `json:"contact_id"`
	ScheduledAt string `json:"scheduled_at"`
	Kind        string `json:"kind"`
	Notes       string `json:"notes"`
}

func NewAppointmentsHandler(log *slog.Logger, service *appointments.Service) *AppointmentsHandler {
	return &AppointmentsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "appointments")),
	}
}

func (h *AppointmentsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/appointments")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)

	slots := e.Group("/api/slots")
	slots.GET("/busy/:date", h.BusySlots)
	slots.GET("/available", h.AvailableSlots)

	e.POST("/api/calendar/events", h.CreateEvent)
}

// List returns appointments, optionally filtered by ?status=.
func (h *AppointmentsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context(), appointments.Status(c.QueryParam("status")))
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *AppointmentsHandler) Create(c echo.Context) error {
	var req CreateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_at must be RFC 3339")
	}
	item, err := h.service.Create(c.Request().Context(), appointments.CreateRequest{
		ContactID:   req.ContactID,
		ScheduledAt: scheduledAt,
		Kind:        req.Kind,
		Notes:       req.Notes,
	})
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *AppointmentsHandler) Get(c echo.Context) error {
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

// Update applies a status transition and/or notes change.
func (h *AppointmentsHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req appointments.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *AppointmentsHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return translateError(h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BusySlots lists the taken times for one day, for the intake bot.
func (h *AppointmentsHandler) BusySlots(c echo.Context) error {
	date := c.Param("date")
	times, err := h.service.BusySlots(c.Request().Context(), date)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"date": date, "busy": times})
}

// AvailableSlots lists the next free openings; ?limit= caps the count.
func (h *AppointmentsHandler) AvailableSlots(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	slots, err := h.service.AvailableSlots(c.Request().Context(), limit)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": slots})
}

// CreateEvent books a calendar event directly, outside the appointment flow.
func (h *AppointmentsHandler) CreateEvent(c echo.Context) error {
	var req appointments.EventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eventID, err := h.service.CreateEvent(c.Request().Context(), req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"event_id": eventID})
}
