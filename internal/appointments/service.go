// Package appointments manages consultation scheduling for the firm.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/calendar"
	"github.com/advocrmhq/advocrm/internal/db"
)

const defaultKind = "primeira_consulta"

// Scheduler is the slice of the calendar client this service needs.
// A nil Scheduler disables the integration; appointments are then plain
// database rows and busy slots come from pending rows alone.
type Scheduler interface {
	CreateEvent(ctx context.Context, ev calendar.Event) (string, error)
	CancelEvent(ctx context.Context, eventID string) error
	BusyTimes(ctx context.Context, date string) ([]string, error)
}

type Service struct {
	pool      *pgxpool.Pool
	scheduler Scheduler
	logger    *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, scheduler Scheduler) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:      pool,
		scheduler: scheduler,
		logger:    log.With(slog.String("service", "appointments")),
	}
}

const appointmentColumns = `id, contact_id, scheduled_at, kind, status, notes, google_event_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ContactID, &a.ScheduledAt, &a.Kind, &a.Status,
		&a.Notes, &a.GoogleEventID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// kindLabel maps an appointment kind to the title shown on calendar events.
func kindLabel(kind string) string {
	switch kind {
	case "primeira_consulta":
		return "1ª Consulta"
	case "retorno":
		return "Retorno"
	case "urgente":
		return "Urgente"
	default:
		return kind
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Appointment, error) {
	if s.pool == nil {
		return Appointment{}, fmt.Errorf("appointments pool not configured")
	}
	if req.ContactID <= 0 {
		return Appointment{}, apperr.Invalid("contact_id is required")
	}
	if req.ScheduledAt.IsZero() {
		return Appointment{}, apperr.Invalid("scheduled_at is required")
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = defaultKind
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (contact_id, scheduled_at, kind, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING `+appointmentColumns+`
	`, req.ContactID, req.ScheduledAt, kind, req.Notes)
	appt, err := scanAppointment(row)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Appointment{}, apperr.NotFound("contact")
		}
		return Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	s.recordCalendarEvent(ctx, &appt)
	return appt, nil
}

// recordCalendarEvent creates the calendar event for a fresh appointment and
// stores its ID. Calendar failures are logged; the appointment stands either
// way.
func (s *Service) recordCalendarEvent(ctx context.Context, appt *Appointment) {
	if s.scheduler == nil {
		return
	}
	var contactName string
	if err := s.pool.QueryRow(ctx,
		`SELECT name FROM contacts WHERE id = $1`, appt.ContactID).Scan(&contactName); err != nil {
		s.logger.Warn("calendar event skipped, contact lookup failed",
			slog.Int64("appointment", appt.ID), slog.Any("error", err))
		return
	}
	eventID, err := s.scheduler.CreateEvent(ctx, calendar.Event{
		Title:       kindLabel(appt.Kind) + " - " + contactName,
		Description: appt.Notes,
		Start:       appt.ScheduledAt,
	})
	if err != nil {
		s.logger.Warn("calendar event create failed",
			slog.Int64("appointment", appt.ID), slog.Any("error", err))
		return
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE appointments SET google_event_id = $2 WHERE id = $1`, appt.ID, eventID); err != nil {
		s.logger.Warn("calendar event id not saved",
			slog.Int64("appointment", appt.ID), slog.Any("error", err))
		return
	}
	appt.GoogleEventID = eventID
}

// cancelCalendarEvent drops the event from the calendar, best-effort.
func (s *Service) cancelCalendarEvent(ctx context.Context, apptID int64, eventID string) {
	if s.scheduler == nil || eventID == "" {
		return
	}
	if err := s.scheduler.CancelEvent(ctx, eventID); err != nil {
		s.logger.Warn("calendar event cancel failed",
			slog.Int64("appointment", apptID), slog.Any("error", err))
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Appointment, error) {
	if s.pool == nil {
		return Appointment{}, fmt.Errorf("appointments pool not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, apperr.NotFound("appointment")
		}
		return Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// List returns appointments newest-first with the contact name and phone
// joined in. A non-empty status filters the result.
func (s *Service) List(ctx context.Context, status Status) ([]Appointment, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("appointments pool not configured")
	}
	if status != "" && !ValidStatus(status) {
		return nil, apperr.Invalid("unknown status %q", status)
	}
	query := `
		SELECT a.id, a.contact_id, COALESCE(c.name, ''), COALESCE(c.phone, ''),
			a.scheduled_at, a.kind, a.status, a.notes, a.google_event_id,
			a.created_at, a.updated_at
		FROM appointments a
		LEFT JOIN contacts c ON c.id = a.contact_id
	`
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx, query+` ORDER BY a.scheduled_at DESC, a.id DESC`)
	} else {
		rows, err = s.pool.Query(ctx,
			query+` WHERE a.status = $1 ORDER BY a.scheduled_at DESC, a.id DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ContactID, &a.ContactName, &a.ContactPhone,
			&a.ScheduledAt, &a.Kind, &a.Status, &a.Notes, &a.GoogleEventID,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListByContact returns a contact's appointments newest-first.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Appointment, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("appointments pool not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE contact_id = $1
		ORDER BY scheduled_at DESC, id DESC
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list contact appointments: %w", err)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, appt)
	}
	return items, rows.Err()
}

// Update applies a status transition and/or a notes change. Transitions out
// of done or cancelled are rejected.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Appointment, error) {
	if s.pool == nil {
		return Appointment{}, fmt.Errorf("appointments pool not configured")
	}
	if req.Status == nil && req.Notes == nil {
		return Appointment{}, apperr.Invalid("nothing to update")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Appointment{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, apperr.NotFound("appointment")
		}
		return Appointment{}, fmt.Errorf("lock appointment: %w", err)
	}

	if req.Status != nil {
		next := *req.Status
		if !ValidStatus(next) {
			return Appointment{}, apperr.Invalid("unknown status %q", next)
		}
		if !CanTransition(current.Status, next) {
			return Appointment{}, apperr.Invalid("cannot change status from %s to %s", current.Status, next)
		}
		current.Status = next
	}
	if req.Notes != nil {
		current.Notes = *req.Notes
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments SET status = $2, notes = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, current.Status, current.Notes)
	updated, err := scanAppointment(row)
	if err != nil {
		return Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Appointment{}, fmt.Errorf("commit update: %w", err)
	}
	if req.Status != nil && updated.Status == StatusCancelled {
		s.cancelCalendarEvent(ctx, updated.ID, updated.GoogleEventID)
	}
	return updated, nil
}

// Delete hard-deletes an appointment. Normal flow closes appointments via
// status transitions; this exists for admin cleanup parity.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.pool == nil {
		return fmt.Errorf("appointments pool not configured")
	}
	var eventID string
	row := s.pool.QueryRow(ctx,
		`DELETE FROM appointments WHERE id = $1 RETURNING google_event_id`, id)
	if err := row.Scan(&eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("appointment")
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.cancelCalendarEvent(ctx, id, eventID)
	return nil
}
