package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/auth"
	"github.com/advocrmhq/advocrm/internal/calendar"
	"github.com/advocrmhq/advocrm/internal/evolution"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// translateError is the single place service failures become HTTP status
// codes. Gateway and storage details are logged, never exposed.
func translateError(log *slog.Logger, err error) error {
	switch {
	case apperr.IsInvalid(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperr.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, evolution.ErrRejected):
		log.Warn("gateway rejected request", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "messaging gateway rejected the request")
	case errors.Is(err, evolution.ErrUnavailable):
		log.Warn("gateway unavailable", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "messaging gateway unavailable")
	case errors.Is(err, calendar.ErrRejected):
		log.Warn("calendar rejected request", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "calendar rejected the request")
	case errors.Is(err, calendar.ErrUnavailable):
		log.Warn("calendar unavailable", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "calendar unavailable")
	default:
		log.Error("request failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// actor identifies the authenticated caller for audit log lines on
// destructive operations.
func actor(c echo.Context) slog.Attr {
	id, err := auth.UserIDFromContext(c)
	if err != nil {
		return slog.String("actor", "unknown")
	}
	return slog.Group("actor",
		slog.Int64("id", id),
		slog.String("role", auth.RoleFromContext(c)),
	)
}

// pathID parses the named path parameter as a positive int64 identity.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return id, nil
}
