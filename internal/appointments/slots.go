package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/calendar"
)

// businessHours are the slots the firm offers consultations in, skipping
// the lunch hour.
var businessHours = []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

const (
	slotScanDays      = 30
	defaultSlotsLimit = 10
)

// BusySlots returns the taken HH:MM times on a day (YYYY-MM-DD). The
// calendar is the source of truth; when it is unreachable or not
// configured, pending appointments in the database answer instead.
func (s *Service) BusySlots(ctx context.Context, date string) ([]string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperr.Invalid("date must be YYYY-MM-DD")
	}
	if s.scheduler != nil {
		times, err := s.scheduler.BusyTimes(ctx, date)
		if err == nil {
			return times, nil
		}
		s.logger.Warn("calendar busy times failed, using pending appointments",
			slog.String("date", date), slog.Any("error", err))
	}
	if s.pool == nil {
		return nil, fmt.Errorf("appointments pool not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(scheduled_at, 'HH24:MI') FROM appointments
		WHERE scheduled_at::date = $1::date AND status = 'pending'
		ORDER BY 1
	`, date)
	if err != nil {
		return nil, fmt.Errorf("busy slots: %w", err)
	}
	defer rows.Close()

	times := make([]string, 0)
	for rows.Next() {
		var hhmm string
		if err := rows.Scan(&hhmm); err != nil {
			return nil, fmt.Errorf("scan busy slot: %w", err)
		}
		times = append(times, hhmm)
	}
	return times, rows.Err()
}

// AvailableSlots returns up to limit free openings starting today, skipping
// weekends. A non-positive limit means ten, matching what the intake bot
// offers a caller.
func (s *Service) AvailableSlots(ctx context.Context, limit int) ([]Slot, error) {
	if limit <= 0 {
		limit = defaultSlotsLimit
	}
	return freeSlots(time.Now(), limit, func(date string) ([]string, error) {
		return s.BusySlots(ctx, date)
	})
}

// freeSlots scans forward from the given day, weekdays only, collecting
// business-hour openings the busy lookup does not report as taken.
func freeSlots(from time.Time, limit int, busy func(date string) ([]string, error)) ([]Slot, error) {
	slots := make([]Slot, 0, limit)
	for i := 0; i < slotScanDays && len(slots) < limit; i++ {
		day := from.AddDate(0, 0, i)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		date := day.Format("2006-01-02")
		taken, err := busy(date)
		if err != nil {
			return nil, err
		}
		takenSet := make(map[string]bool, len(taken))
		for _, hhmm := range taken {
			takenSet[hhmm] = true
		}
		for _, hhmm := range businessHours {
			if takenSet[hhmm] {
				continue
			}
			slots = append(slots, Slot{Date: date, Time: hhmm})
			if len(slots) == limit {
				break
			}
		}
	}
	return slots, nil
}

// CreateEvent creates a calendar event directly and returns its ID. The
// intake bot uses this to book slots it negotiated over chat; when
// AppointmentID is set, the event is attached to that appointment.
func (s *Service) CreateEvent(ctx context.Context, req EventRequest) (string, error) {
	if s.scheduler == nil {
		return "", apperr.Invalid("calendar is not configured")
	}
	if strings.TrimSpace(req.Title) == "" {
		return "", apperr.Invalid("title is required")
	}
	start, err := time.Parse("2006-01-02 15:04", req.Date+" "+req.Time)
	if err != nil {
		return "", apperr.Invalid("date must be YYYY-MM-DD and time HH:MM")
	}
	eventID, err := s.scheduler.CreateEvent(ctx, calendar.Event{
		Title:         req.Title,
		Description:   req.Description,
		Start:         start,
		AttendeeEmail: req.AttendeeEmail,
	})
	if err != nil {
		return "", err
	}
	if req.AppointmentID > 0 && s.pool != nil {
		if _, err := s.pool.Exec(ctx,
			`UPDATE appointments SET google_event_id = $2 WHERE id = $1`,
			req.AppointmentID, eventID); err != nil {
			s.logger.Warn("calendar event id not saved",
				slog.Int64("appointment", req.AppointmentID), slog.Any("error", err))
		}
	}
	return eventID, nil
}
