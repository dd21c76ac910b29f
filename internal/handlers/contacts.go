package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/appointments"
	"github.com/advocrmhq/advocrm/internal/contacts"
	"github.com/advocrmhq/advocrm/internal/conversations"
	"github.com/advocrmhq/advocrm/internal/documents"
)

// ContactsHandler serves the /api/contacts surface.
type ContactsHandler struct {
	service             *contacts.Service
	appointmentService  *appointments.Service
	documentService     *documents.Service
	conversationService *conversations.Service
	logger              *slog.Logger
}

// ContactDetail is a contact with its appointments, documents, and
// WhatsApp history embedded, the shape the contact page renders.
type ContactDetail struct {
	contacts.Contact
	Appointments  []appointments.Appointment `json:"appointments"`
	Documents     []documents.Document       `json:"documents"`
	Conversations []conversations.Message    `json:"conversations"`
}

func NewContactsHandler(log *slog.Logger, service *contacts.Service, appointmentService *appointments.Service,
	documentService *documents.Service, conversationService *conversations.Service,
) *ContactsHandler {
	return &ContactsHandler{
		service:             service,
		appointmentService:  appointmentService,
		documentService:     documentService,
		conversationService: conversationService,
		logger:              log.With(slog.String("handler", "contacts")),
	}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/contacts")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// List returns contacts, optionally filtered by ?q= over name, phone, and cpf.
func (h *ContactsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) Create(c echo.Context) error {
	var req contacts.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// Get returns the contact detail view with related records embedded.
func (h *ContactsHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	contact, err := h.service.Get(ctx, id)
	if err != nil {
		return translateError(h.logger, err)
	}
	detail := ContactDetail{
		Contact:       contact,
		Appointments:  []appointments.Appointment{},
		Documents:     []documents.Document{},
		Conversations: []conversations.Message{},
	}
	if detail.Appointments, err = h.appointmentService.ListByContact(ctx, id); err != nil {
		return translateError(h.logger, err)
	}
	if detail.Documents, err = h.documentService.ListByContact(ctx, id); err != nil {
		return translateError(h.logger, err)
	}
	if detail.Conversations, err = h.conversationService.HistoryByPhone(ctx, contact.Phone); err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *ContactsHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req contacts.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Delete cascades to the contact's appointments, documents, and stored files.
func (h *ContactsHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.Delete(c.Request().Context(), id)
	if err != nil {
		return translateError(h.logger, err)
	}
	h.logger.Info("contact deleted", slog.Int64("id", id), actor(c))
	return c.JSON(http.StatusOK, result)
}
