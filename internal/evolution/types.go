package evolution

import "strings"

// ConnectionState is the gateway-reported state of a WhatsApp instance.
type ConnectionState string

const (
	StateOpen       ConnectionState = "open"
	StateClose      ConnectionState = "close"
	StateConnecting ConnectionState = "connecting"
	StateUnknown    ConnectionState = "unknown"
)

// NormalizeState maps a raw gateway state string onto a known ConnectionState.
func NormalizeState(raw string) ConnectionState {
	switch ConnectionState(strings.ToLower(strings.TrimSpace(raw))) {
	case StateOpen:
		return StateOpen
	case StateClose:
		return StateClose
	case StateConnecting:
		return StateConnecting
	default:
		return StateUnknown
	}
}

// Target selects which gateway deployment a call goes to. Empty fields
// fall back to the client's configured defaults, so instances registered
// against a different Evolution deployment carry their own URL and key.
type Target struct {
	BaseURL string
	APIKey  string
}

// Instance is a gateway-side instance record.
type Instance struct {
	Name  string          `json:"instanceName"`
	State ConnectionState `json:"state"`
}

type createInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Integration  string `json:"integration,omitempty"`
}

type connectionStateResponse struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

type fetchInstancesResponse []struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		Status       string `json:"status"`
	} `json:"instance"`
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}
