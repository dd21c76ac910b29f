package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/conversations"
)

// MessagesHandler serves WhatsApp history and outbound messages.
type MessagesHandler struct {
	service *conversations.Service
	logger  *slog.Logger
}

func NewMessagesHandler(log *slog.Logger, service *conversations.Service) *MessagesHandler {
	return &MessagesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "messages")),
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.GET("/api/history/:phone", h.History)
	e.POST("/api/messages", h.Send)
}

// History returns the conversation with a phone number, oldest first.
func (h *MessagesHandler) History(c echo.Context) error {
	phone := strings.TrimSpace(c.Param("phone"))
	items, err := h.service.HistoryByPhone(c.Request().Context(), phone)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Send delivers a WhatsApp text through the registered instance.
func (h *MessagesHandler) Send(c echo.Context) error {
	var req conversations.SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.service.SendText(c.Request().Context(), req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
