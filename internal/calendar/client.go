// Package calendar wraps the Google Calendar v3 events API for consultation
// scheduling.
//
// Same shape as the messaging gateway client: single synchronous HTTP calls
// with a bounded timeout and sentinel errors the handlers can translate.
// Callers treat calendar failures as best-effort; an appointment never fails
// because the calendar did.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks transient failures: the calendar API is unreachable or answered 5xx.
	ErrUnavailable = errors.New("calendar unavailable")
	// ErrRejected marks requests the calendar API refused (4xx).
	ErrRejected = errors.New("calendar rejected request")
)

const (
	defaultBaseURL     = "https://www.googleapis.com/calendar/v3"
	defaultTimezone    = "America/Fortaleza"
	defaultDurationMin = 60
	defaultTimeout     = 5 * time.Second
)

// Client calls the Google Calendar events API for one configured calendar.
type Client struct {
	baseURL    string
	calendarID string
	token      string
	timezone   string
	loc        *time.Location
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a calendar client for the given calendar ID. The token is
// sent as a bearer Authorization header. An empty timezone defaults to
// America/Fortaleza, the firm's timezone.
func NewClient(log *slog.Logger, baseURL, calendarID, token, timezone string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("client", "calendar"))
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timezone = strings.TrimSpace(timezone); timezone == "" {
		timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn("unknown calendar timezone, using UTC", slog.String("timezone", timezone))
		timezone = "UTC"
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		calendarID: strings.TrimSpace(calendarID),
		token:      strings.TrimSpace(token),
		timezone:   timezone,
		loc:        loc,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// CreateEvent inserts an event and returns its calendar event ID. The event
// start is taken as wall-clock time in the configured timezone; invited
// attendees are notified by the calendar itself.
func (c *Client) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if strings.TrimSpace(ev.Title) == "" || ev.Start.IsZero() {
		return "", fmt.Errorf("event title and start are required: %w", ErrRejected)
	}
	duration := ev.DurationMin
	if duration <= 0 {
		duration = defaultDurationMin
	}
	body := insertEventRequest{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format("2006-01-02T15:04:05"), TimeZone: c.timezone},
		End: eventTime{
			DateTime: ev.Start.Add(time.Duration(duration) * time.Minute).Format("2006-01-02T15:04:05"),
			TimeZone: c.timezone,
		},
		Reminders: reminders{
			Overrides: []reminderOverride{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
		},
	}
	if email := strings.TrimSpace(ev.AttendeeEmail); email != "" {
		body.Attendees = []attendee{{Email: email}}
	}

	var resp insertEventResponse
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events?sendUpdates=all"
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CancelEvent deletes an event; attendees are notified of the cancellation.
func (c *Client) CancelEvent(ctx context.Context, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("event id is required: %w", ErrRejected)
	}
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events/" + url.PathEscape(eventID) + "?sendUpdates=all"
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// BusyTimes returns the HH:MM start times of the events on the given day
// (YYYY-MM-DD), in the configured timezone.
func (c *Client) BusyTimes(ctx context.Context, date string) ([]string, error) {
	day, err := time.ParseInLocation("2006-01-02", date, c.loc)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", ErrRejected)
	}

	query := url.Values{}
	query.Set("timeMin", day.Format(time.RFC3339))
	query.Set("timeMax", day.AddDate(0, 0, 1).Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	var resp listEventsResponse
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	times := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			// All-day events carry a date instead of a dateTime; skip them.
			continue
		}
		times = append(times, start.In(c.loc).Format("15:04"))
	}
	return times, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.calendarID == "" {
		return fmt.Errorf("calendar id not configured: %w", ErrUnavailable)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("calendar request failed", slog.String("method", method), slog.Any("error", err))
		return fmt.Errorf("%s calendar: %w", method, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn("calendar error response",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s calendar: status %d: %w", method, resp.StatusCode, ErrUnavailable)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("calendar rejected request",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return fmt.Errorf("%s calendar: status %d: %w", method, resp.StatusCode, ErrRejected)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
