package model

import "time"

// Plan lifecycle statuses. A plan is created pending, crosses to active when
// the clock passes its start, and to completed when it passes its end.
// Cancelled is a terminal, administrator-triggered exit.
const (
	PlanStatusPending   = "pending"
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

// Repeat policies.
const (
	RepeatNone   = "None"
	RepeatAlways = "Always"
)

// Plan is a time-boxed activation rule over an ordered set of campaigns.
// Start and End are optional; a plan without a window is inert to the
// scheduler and never transitions on its own.
type Plan struct {
	ID              string       `db:"id"                 json:"id"`
	Name            string       `db:"name"               json:"name"`
	EventType       string       `db:"event_type"         json:"event_type"`
	Start           *time.Time   `db:"start_at"           json:"start"`
	End             *time.Time   `db:"end_at"             json:"end"`
	Repeat          string       `db:"repeat"             json:"repeat"`
	Status          string       `db:"status"             json:"status"`
	MaxPlaysPerHour int          `db:"max_plays_per_hour" json:"max_plays_per_hour"`
	LocationAware   bool         `db:"location_aware"     json:"location_aware"`
	Priority        int          `db:"priority"           json:"priority"`
	Campaigns       CampaignList `db:"campaigns"          json:"campaigns"`
	CreatedAt       time.Time    `db:"created_at"         json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"         json:"updated_at"`
}

// HasWindow reports whether both ends of the activation window are set.
func (p *Plan) HasWindow() bool {
	return p.Start != nil && p.End != nil
}
