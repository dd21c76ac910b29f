package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/documents"
)

// DocumentsHandler serves uploads under contacts and the /api/documents surface.
type DocumentsHandler struct {
	service *documents.Service
	logger  *slog.Logger
}

func NewDocumentsHandler(log *slog.Logger, service *documents.Service) *DocumentsHandler {
	return &DocumentsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "documents")),
	}
}

func (h *DocumentsHandler) Register(e *echo.Echo) {
	e.POST("/api/contacts/:id/documents", h.Upload)
	e.GET("/api/contacts/:id/documents", h.ListByContact)
	e.GET("/api/documents/:id/download", h.Download)
	e.DELETE("/api/documents/:id", h.Delete)
}

// Upload attaches a multipart file (field "file") to a contact.
func (h *DocumentsHandler) Upload(c echo.Context) error {
	contactID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	doc, err := h.service.Attach(c.Request().Context(), contactID, src,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *DocumentsHandler) ListByContact(c echo.Context) error {
	contactID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.service.ListByContact(c.Request().Context(), contactID)
	if err != nil {
		return translateError(h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Download streams the stored file with its original name.
func (h *DocumentsHandler) Download(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	doc, reader, err := h.service.Open(c.Request().Context(), id)
	if err != nil {
		return translateError(h.logger, err)
	}
	defer reader.Close()

	mime := doc.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.OriginalName+`"`)
	return c.Stream(http.StatusOK, mime, reader)
}

// Delete removes the metadata row and the stored file. A file that could
// not be removed comes back as a warning on a 200.
func (h *DocumentsHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.Delete(c.Request().Context(), id)
	if err != nil {
		return translateError(h.logger, err)
	}
	h.logger.Info("document deleted", slog.Int64("id", id), actor(c))
	return c.JSON(http.StatusOK, result)
}
