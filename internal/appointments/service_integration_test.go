package appointments_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/appointments"
	"github.com/advocrmhq/advocrm/internal/calendar"
	"github.com/advocrmhq/advocrm/internal/contacts"
)

func setupIntegrationTest(t *testing.T, scheduler appointments.Scheduler) (*appointments.Service, *contacts.Service, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return appointments.NewService(logger, pool, scheduler), contacts.NewService(logger, pool, nil), func() { pool.Close() }
}

// stubScheduler records calendar calls without talking to any API.
type stubScheduler struct {
	createErr error
	busyErr   error
	busy      []string
	created   []calendar.Event
	cancelled []string
}

func (s *stubScheduler) CreateEvent(_ context.Context, ev calendar.Event) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, ev)
	return fmt.Sprintf("ev-%d", len(s.created)), nil
}

func (s *stubScheduler) CancelEvent(_ context.Context, eventID string) error {
	s.cancelled = append(s.cancelled, eventID)
	return nil
}

func (s *stubScheduler) BusyTimes(_ context.Context, date string) ([]string, error) {
	if s.busyErr != nil {
		return nil, s.busyErr
	}
	return s.busy, nil
}

func createTestContact(t *testing.T, svc *contacts.Service) contacts.Contact {
	t.Helper()
	created, err := svc.Create(context.Background(), contacts.CreateRequest{
		Name:  "Cliente Teste",
		Phone: fmt.Sprintf("55119%09d", time.Now().UnixNano()%1000000000),
	})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	t.Cleanup(func() { _, _ = svc.Delete(context.Background(), created.ID) })
	return created
}

func TestIntegrationCreateDefaults(t *testing.T) {
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.Status != appointments.StatusPending {
		t.Errorf("status = %q, want pending", appt.Status)
	}
	if appt.Kind != "primeira_consulta" {
		t.Errorf("kind = %q, want primeira_consulta", appt.Kind)
	}
}

func TestIntegrationCreateUnknownContact(t *testing.T) {
	apptSvc, _, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	_, err := apptSvc.Create(context.Background(), appointments.CreateRequest{
		ContactID:   999999999,
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestIntegrationTerminalStatusIsFinal(t *testing.T) {
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	done := appointments.StatusDone
	if _, err := apptSvc.Update(ctx, appt.ID, appointments.UpdateRequest{Status: &done}); err != nil {
		t.Fatalf("close appointment: %v", err)
	}

	pending := appointments.StatusPending
	if _, err := apptSvc.Update(ctx, appt.ID, appointments.UpdateRequest{Status: &pending}); !apperr.IsInvalid(err) {
		t.Errorf("reopen: err = %v, want invalid", err)
	}
	cancelled := appointments.StatusCancelled
	if _, err := apptSvc.Update(ctx, appt.ID, appointments.UpdateRequest{Status: &cancelled}); !apperr.IsInvalid(err) {
		t.Errorf("done to cancelled: err = %v, want invalid", err)
	}

	// Notes stay editable after the appointment closes.
	notes := "remarcar"
	if _, err := apptSvc.Update(ctx, appt.ID, appointments.UpdateRequest{Notes: &notes}); err != nil {
		t.Errorf("notes on closed appointment: %v", err)
	}
}

func TestIntegrationUpdateNothing(t *testing.T) {
	apptSvc, _, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	_, err := apptSvc.Update(context.Background(), 1, appointments.UpdateRequest{})
	if !apperr.IsInvalid(err) {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestIntegrationCreateBooksCalendarEvent(t *testing.T) {
	sched := &stubScheduler{}
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, sched)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(72 * time.Hour),
		Kind:        "retorno",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.GoogleEventID == "" {
		t.Fatal("google_event_id not recorded")
	}
	if len(sched.created) != 1 {
		t.Fatalf("created events = %d, want 1", len(sched.created))
	}
	if want := "Retorno - " + contact.Name; sched.created[0].Title != want {
		t.Errorf("event title = %q, want %q", sched.created[0].Title, want)
	}

	// Cancelling the appointment drops the event too.
	cancelled := appointments.StatusCancelled
	if _, err := apptSvc.Update(ctx, appt.ID, appointments.UpdateRequest{Status: &cancelled}); err != nil {
		t.Fatalf("cancel appointment: %v", err)
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != appt.GoogleEventID {
		t.Errorf("cancelled events = %v, want [%s]", sched.cancelled, appt.GoogleEventID)
	}
}

func TestIntegrationCalendarFailureDoesNotBlockCreate(t *testing.T) {
	sched := &stubScheduler{createErr: calendar.ErrUnavailable}
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, sched)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.GoogleEventID != "" {
		t.Errorf("google_event_id = %q, want empty after calendar failure", appt.GoogleEventID)
	}
}

func TestIntegrationDeleteCancelsCalendarEvent(t *testing.T) {
	sched := &stubScheduler{}
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, sched)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := apptSvc.Delete(ctx, appt.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != appt.GoogleEventID {
		t.Errorf("cancelled events = %v, want [%s]", sched.cancelled, appt.GoogleEventID)
	}
}

func TestIntegrationBusySlotsFallsBackToPendingRows(t *testing.T) {
	sched := &stubScheduler{busyErr: errors.New("calendar down")}
	apptSvc, contactSvc, cleanup := setupIntegrationTest(t, sched)
	defer cleanup()

	ctx := context.Background()
	contact := createTestContact(t, contactSvc)

	// Far enough out that no other test data shares the day.
	day := time.Now().AddDate(1, 0, 0)
	scheduled := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
	appt, err := apptSvc.Create(ctx, appointments.CreateRequest{
		ContactID:   contact.ID,
		ScheduledAt: scheduled,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer func() { _ = apptSvc.Delete(ctx, appt.ID) }()

	times, err := apptSvc.BusySlots(ctx, scheduled.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("busy slots: %v", err)
	}
	found := false
	for _, hhmm := range times {
		if hhmm == "09:00" {
			found = true
		}
	}
	if !found {
		t.Errorf("busy slots %v missing 09:00 pending appointment", times)
	}
}

func TestIntegrationBusySlotsBadDate(t *testing.T) {
	apptSvc, _, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	if _, err := apptSvc.BusySlots(context.Background(), "31/12/2026"); !apperr.IsInvalid(err) {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestIntegrationCreateEventWithoutCalendar(t *testing.T) {
	apptSvc, _, cleanup := setupIntegrationTest(t, nil)
	defer cleanup()

	_, err := apptSvc.CreateEvent(context.Background(), appointments.EventRequest{
		Title: "Retorno - Maria",
		Date:  "2026-12-01",
		Time:  "09:00",
	})
	if !apperr.IsInvalid(err) {
		t.Fatalf("err = %v, want invalid when calendar is not configured", err)
	}
}
