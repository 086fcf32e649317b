package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

// GetUserByID fetches a user. Returns nil, sql.ErrNoRows if not found.
func GetUserByID(id int) (*model.User, error) {
	var u model.User
	q := `
	SELECT id, email, name, is_online, last_active, created_at, updated_at
	FROM users
	WHERE id = $1;
	`
	err := DB.Get(&u, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Err(err).Int("user_id", id).Msg("GetUserByID failed")
		return nil, err
	}
	return &u, nil
}

// SetUserPresence records an operator going online or offline.
func SetUserPresence(id int, online bool, lastActive time.Time) error {
	_, err := DB.Exec(`
		UPDATE users
		SET is_online = $2,
		last_active = $3,
		updated_at = now()
		WHERE id = $1;`, id, online, lastActive)
	if err != nil {
		log.Error().Err(err).Int("user_id", id).Msg("SetUserPresence failed")
	}
	return err
}
