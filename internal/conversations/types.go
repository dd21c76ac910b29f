package conversations

import "time"

// Origin marks which side of the conversation produced the message.
const (
	OriginClient    = "cliente"
	OriginAttendant = "atendente"
)

// Message is one entry in a contact's WhatsApp history, keyed by phone number.
type Message struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Origin    string    `json:"origin"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}
