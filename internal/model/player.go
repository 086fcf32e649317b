package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Player connectivity statuses.
const (
	PlayerStatusOnline  = "online"
	PlayerStatusOffline = "offline"
)

// Player is the durable record of a display device. Many transient
// connections map to one player over time, keyed by its stable device id.
type Player struct {
	ID            int            `db:"id"             json:"id"`
	DeviceID      string         `db:"device_id"      json:"device_id"`
	Name          string         `db:"name"           json:"name"`
	Status        string         `db:"status"         json:"status"`
	LastHeartbeat *time.Time     `db:"last_heartbeat" json:"last_heartbeat"`
	Settings      PlayerSettings `db:"settings"       json:"settings"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"     json:"updated_at"`
}

// PlayerSettings is stored as a jsonb column on players.
type PlayerSettings struct {
	AutoStart         bool   `json:"auto_start"`
	CacheContent      bool   `json:"cache_content"`
	LogLevel          string `json:"log_level"`
	HeartbeatInterval int    `json:"heartbeat_interval"` // seconds
}

// DefaultPlayerSettings applies to players created on first registration.
func DefaultPlayerSettings() PlayerSettings {
	return PlayerSettings{
		AutoStart:         true,
		CacheContent:      true,
		LogLevel:          "info",
		HeartbeatInterval: 30,
	}
}

func (s PlayerSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *PlayerSettings) Scan(src any) error {
	if src == nil {
		*s = DefaultPlayerSettings()
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into PlayerSettings", src)
	}
}
