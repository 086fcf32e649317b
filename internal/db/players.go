package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

const playerColumns = `
	id, device_id, name, status, last_heartbeat, settings, created_at, updated_at`

// UpsertPlayerByDeviceID creates the durable player record on first
// registration (name defaults to the device id, settings to their defaults)
// and refreshes status and heartbeat on every subsequent one.
func UpsertPlayerByDeviceID(deviceID, status string, heartbeat time.Time) (*model.Player, error) {
	var p model.Player
	q := `
	INSERT INTO players (device_id, name, status, last_heartbeat, settings, created_at, updated_at)
	VALUES ($1, $1, $2, $3, $4, now(), now())
	ON CONFLICT (device_id) DO UPDATE
	SET status = EXCLUDED.status,
	last_heartbeat = EXCLUDED.last_heartbeat,
	updated_at = now()
	RETURNING ` + playerColumns + `;`
	err := DB.Get(&p, q, deviceID, status, heartbeat, model.DefaultPlayerSettings())
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("UpsertPlayerByDeviceID failed")
		return nil, err
	}
	return &p, nil
}

// GetPlayerByDeviceID fetches a player. Returns nil, sql.ErrNoRows if not found.
func GetPlayerByDeviceID(deviceID string) (*model.Player, error) {
	var p model.Player
	err := DB.Get(&p, `SELECT `+playerColumns+` FROM players WHERE device_id = $1;`, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Err(err).Str("device_id", deviceID).Msg("GetPlayerByDeviceID failed")
		return nil, err
	}
	return &p, nil
}

func ListPlayers() ([]model.Player, error) {
	var out []model.Player
	err := DB.Select(&out, `SELECT `+playerColumns+` FROM players ORDER BY device_id;`)
	if err != nil {
		log.Error().Err(err).Msg("ListPlayers failed")
		return nil, err
	}
	return out, nil
}

func SetPlayerStatus(deviceID, status string) error {
	_, err := DB.Exec(`
		UPDATE players
		SET status = $2,
		updated_at = now()
		WHERE device_id = $1;`, deviceID, status)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Str("status", status).Msg("SetPlayerStatus failed")
	}
	return err
}

// TouchPlayerHeartbeat records a heartbeat without changing status.
func TouchPlayerHeartbeat(deviceID string, at time.Time) error {
	_, err := DB.Exec(`
		UPDATE players
		SET last_heartbeat = $2,
		updated_at = now()
		WHERE device_id = $1;`, deviceID, at)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("TouchPlayerHeartbeat failed")
	}
	return err
}

func UpdatePlayerSettings(deviceID string, settings model.PlayerSettings) error {
	_, err := DB.Exec(`
		UPDATE players
		SET settings = $2,
		updated_at = now()
		WHERE device_id = $1;`, deviceID, settings)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("UpdatePlayerSettings failed")
	}
	return err
}

// ListStalePlayers returns players still marked online whose last heartbeat
// is older than the cutoff (or missing entirely). Used by the presence sweep.
func ListStalePlayers(olderThan time.Time) ([]model.Player, error) {
	var out []model.Player
	q := `
	SELECT ` + playerColumns + `
	  FROM players
	 WHERE status = 'online'
	   AND (last_heartbeat IS NULL OR last_heartbeat < $1)
	 ORDER BY device_id;`
	if err := DB.Select(&out, q, olderThan); err != nil {
		log.Error().Err(err).Msg("ListStalePlayers failed")
		return nil, err
	}
	return out, nil
}
