package model

import (
	"encoding/json"
	"time"
)

// Event names carried on the realtime socket. Outbound events are pushed by
// the server; inbound events arrive from player and dashboard connections.
const (
	// outbound
	EventPlanStarted        = "plan-started"
	EventPlanEnded          = "plan-ended"
	EventContentUpdate      = "content-update"
	EventSettingsUpdate     = "settings-update"
	EventPlayerStatusChange = "player-status-change"
	EventUserStatusChange   = "user-status-change"

	// inbound
	EventRegisterPlayer = "register-player"
	EventUserConnect    = "user-connect"
	EventUpdateContent  = "update-content"
	EventUpdateSettings = "update-settings"
	EventHeartbeat      = "heartbeat"
)

// Envelope is the wire framing for every socket message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an Envelope. Marshal failures are
// programming errors on our own payload types, so they surface as an error
// for the caller to log rather than a panic.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

type PlanStartedPayload struct {
	PlanID          string       `json:"planId"`
	Campaigns       CampaignList `json:"campaigns"`
	MaxPlaysPerHour int          `json:"maxPlaysPerHour"`
	LocationAware   bool         `json:"locationAware"`
	Priority        int          `json:"priority"`
}

type PlanEndedPayload struct {
	PlanID string `json:"planId"`
}

type PlayerStatusPayload struct {
	DeviceID string `json:"deviceId"`
	Status   string `json:"status"`
}

type UserStatusPayload struct {
	UserID     int        `json:"userId"`
	IsOnline   bool       `json:"isOnline"`
	LastActive *time.Time `json:"lastActive"`
}

type RegisterPlayerPayload struct {
	DeviceID string `json:"deviceId"`
}

type UserConnectPayload struct {
	UserID int `json:"userId"`
}

type UpdateContentPayload struct {
	DeviceID string       `json:"deviceId"`
	Content  CampaignList `json:"content"`
}

type UpdateSettingsPayload struct {
	DeviceID string         `json:"deviceId"`
	Settings PlayerSettings `json:"settings"`
}
