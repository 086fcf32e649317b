package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CampaignRef is the thin projection of a campaign a plan carries around.
// The scheduler never interprets it; it is passed verbatim to players.
type CampaignRef struct {
	CampaignID string         `json:"campaign_id"`
	Name       string         `json:"name"`
	Duration   int            `json:"duration"`
	Contents   []CampaignItem `json:"contents,omitempty"`
}

// CampaignItem is one entry in a campaign's ordered content sequence.
type CampaignItem struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
}

// CampaignList is stored as a jsonb column on plans.
type CampaignList []CampaignRef

func (c CampaignList) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *CampaignList) Scan(src any) error {
	if src == nil {
		*c = CampaignList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CampaignList", src)
	}
}
