package appointments

import "time"

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusDone, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an appointment may move from one status to
// another. Done and cancelled are terminal; a pending appointment may stay
// pending (notes-only update) or close out either way.
func CanTransition(from, to Status) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == to {
		return from == StatusPending
	}
	return from == StatusPending
}

type Appointment struct {
	ID            int64     `json:"id"`
	ContactID     int64     `json:"contact_id"`
	ContactName   string    `json:"contact_name,omitempty"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Kind          string    `json:"kind"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateRequest struct {
	ContactID   int64     `json:"contact_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Kind        string    `json:"kind"`
	Notes       string    `json:"notes"`
}

type UpdateRequest struct {
	Status *Status `json:"status"`
	Notes  *string `json:"notes"`
}

// Slot is a free consultation opening the intake bot can offer.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// EventRequest creates a calendar event directly, outside the appointment
// flow. When AppointmentID is set, the event is attached to that appointment.
type EventRequest struct {
	Title         string `json:"title"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Description   string `json:"description"`
	AttendeeEmail string `json:"attendee_email"`
	AppointmentID int64  `json:"appointment_id"`
}
