package packets

import (
	"time"

	"github.com/lumenworks/signboard/internal/model"
)

type CreatePlanRequest struct {
	Name            string             `json:"name" binding:"required"`
	EventType       string             `json:"event_type" binding:"required"`
	Start           *time.Time         `json:"start"`
	End             *time.Time         `json:"end"`
	Repeat          *string            `json:"repeat"`
	MaxPlaysPerHour *int               `json:"max_plays_per_hour"`
	LocationAware   *bool              `json:"location_aware"`
	Priority        *int               `json:"priority"`
	Campaigns       model.CampaignList `json:"campaigns"`
}

type UpdatePlanRequest struct {
	Name            *string            `json:"name"`
	EventType       *string            `json:"event_type"`
	Start           *time.Time         `json:"start"`
	End             *time.Time         `json:"end"`
	Repeat          *string            `json:"repeat"`
	MaxPlaysPerHour *int               `json:"max_plays_per_hour"`
	LocationAware   *bool              `json:"location_aware"`
	Priority        *int               `json:"priority"`
	Campaigns       model.CampaignList `json:"campaigns"`
}

type PushContentRequest struct {
	Content model.CampaignList `json:"content" binding:"required"`
}
