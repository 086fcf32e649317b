package packets

import (
	"time"

	"github.com/lumenworks/signboard/internal/model"
)

// PlanResponse mirrors model.Plan but flattens times to RFC3339.
type PlanResponse struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	EventType       string             `json:"event_type"`
	Start           *string            `json:"start"`
	End             *string            `json:"end"`
	Repeat          string             `json:"repeat"`
	Status          string             `json:"status"`
	MaxPlaysPerHour int                `json:"max_plays_per_hour"`
	LocationAware   bool               `json:"location_aware"`
	Priority        int                `json:"priority"`
	Campaigns       model.CampaignList `json:"campaigns"`
	ScheduleState   string             `json:"schedule_state"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
}

func NewPlanResponse(p model.Plan, scheduleState string) PlanResponse {
	return PlanResponse{
		ID:              p.ID,
		Name:            p.Name,
		EventType:       p.EventType,
		Start:           formatTimePtr(p.Start),
		End:             formatTimePtr(p.End),
		Repeat:          p.Repeat,
		Status:          p.Status,
		MaxPlaysPerHour: p.MaxPlaysPerHour,
		LocationAware:   p.LocationAware,
		Priority:        p.Priority,
		Campaigns:       p.Campaigns,
		ScheduleState:   scheduleState,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}

// PlayerResponse mirrors model.Player plus live connectivity from the hub.
type PlayerResponse struct {
	ID            int                  `json:"id"`
	DeviceID      string               `json:"device_id"`
	Name          string               `json:"name"`
	Status        string               `json:"status"`
	Connected     bool                 `json:"connected"`
	LastHeartbeat *string              `json:"last_heartbeat"`
	Settings      model.PlayerSettings `json:"settings"`
	CreatedAt     string               `json:"created_at"`
}

func NewPlayerResponse(p model.Player, connected bool) PlayerResponse {
	return PlayerResponse{
		ID:            p.ID,
		DeviceID:      p.DeviceID,
		Name:          p.Name,
		Status:        p.Status,
		Connected:     connected,
		LastHeartbeat: formatTimePtr(p.LastHeartbeat),
		Settings:      p.Settings,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
