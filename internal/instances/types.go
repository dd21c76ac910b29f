package instances

import (
	"time"

	"github.com/advocrmhq/advocrm/internal/evolution"
)

// Instance is a local record of a WhatsApp instance managed by the
// external gateway. Status is a cached mirror of the gateway's live state,
// refreshed only by an explicit RefreshStatus call.
type Instance struct {
	ID           int64                     `json:"id"`
	Name         string                    `json:"name"`
	InstanceName string                    `json:"instance_name"`
	EvolutionURL string                    `json:"evolution_url,omitempty"`
	EvolutionKey string                    `json:"-"`
	Status       evolution.ConnectionState `json:"status"`
	CheckedAt    *time.Time                `json:"checked_at"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// Target selects the gateway deployment for this instance. Empty fields
// fall back to the configured default gateway.
func (i Instance) Target() evolution.Target {
	return evolution.Target{BaseURL: i.EvolutionURL, APIKey: i.EvolutionKey}
}

type CreateRequest struct {
	Name         string `json:"name"`
	InstanceName string `json:"instance_name"`
	EvolutionURL string `json:"evolution_url"`
	EvolutionKey string `json:"evolution_key"`
}
