package model

import "time"

// Federation instance statuses as reported by health probes.
const (
	InstanceStatusActive      = "active"
	InstanceStatusInactive    = "inactive"
	InstanceStatusError       = "error"
	InstanceStatusMaintenance = "maintenance"
)

// DefaultTrustScore is assigned to newly registered instances until peers
// have exchanged enough traffic to adjust it.
const DefaultTrustScore = 50.0

// FederationInstance is a remote peer that hosts one or more directories and
// speaks the federation submission protocol.
type FederationInstance struct {
	InstanceID   string                 `json:"instance_id"`
	Name         string                 `json:"name"`
	BaseURL      string                 `json:"base_url"`
	Status       string                 `json:"status"`
	TrustScore   float64                `json:"trust_score"`
	Capabilities []string               `json:"capabilities"`
	ContactEmail string                 `json:"contact_email,omitempty"`
	LastSeenAt   time.Time              `json:"last_seen_at"`
	CreatedAt    time.Time              `json:"created_at"`
	MetaData     map[string]interface{} `json:"meta_data,omitempty"`
}

// HasCapability reports whether the instance advertised the named capability
// during registration or a later probe.
func (f *FederationInstance) HasCapability(name string) bool {
	for _, c := range f.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
