package calendar

import "time"

// Event is a calendar entry to create for a consultation.
type Event struct {
	Title         string
	Description   string
	Start         time.Time
	DurationMin   int
	AttendeeEmail string
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type attendee struct {
	Email string `json:"email"`
}

type reminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []reminderOverride `json:"overrides"`
}

type insertEventRequest struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       eventTime  `json:"start"`
	End         eventTime  `json:"end"`
	Attendees   []attendee `json:"attendees,omitempty"`
	Reminders   reminders  `json:"reminders"`
}

type insertEventResponse struct {
	ID string `json:"id"`
}

type listEventsResponse struct {
	Items []struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
	} `json:"items"`
}
