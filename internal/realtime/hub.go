package realtime

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
	"github.com/lumenworks/signboard/internal/redis"
)

// PlayerStore is the slice of the persistence layer the hub touches for
// player presence. db.Store satisfies it.
type PlayerStore interface {
	UpsertPlayerByDeviceID(deviceID, status string, heartbeat time.Time) (*model.Player, error)
	SetPlayerStatus(deviceID, status string) error
	TouchPlayerHeartbeat(deviceID string, at time.Time) error
	UpdatePlayerSettings(deviceID string, settings model.PlayerSettings) error
	ListStalePlayers(olderThan time.Time) ([]model.Player, error)
}

// UserStore records operator presence. db.Store satisfies it.
type UserStore interface {
	GetUserByID(id int) (*model.User, error)
	SetUserPresence(id int, online bool, lastActive time.Time) error
}

// Hub is the connection registry: device id -> live player session and
// user id -> live dashboard session. It survives socket churn; a fresh
// registration silently supersedes the previous handle for the same id.
type Hub struct {
	mu      sync.RWMutex
	players map[string]*session
	admins  map[int]*session

	store            PlayerStore
	users            UserStore
	heartbeatTimeout time.Duration
	now              func() time.Time
}

func NewHub(store PlayerStore, users UserStore, heartbeatTimeout time.Duration) *Hub {
	return &Hub{
		players:          make(map[string]*session),
		admins:           make(map[int]*session),
		store:            store,
		users:            users,
		heartbeatTimeout: heartbeatTimeout,
		now:              time.Now,
	}
}

// RegisterPlayer upserts the durable player record as online with a fresh
// heartbeat and stores sess as the device's current handle. Any prior handle
// is left open: it is orphaned and its own disconnect becomes a no-op once
// it no longer matches the registry entry.
func (h *Hub) RegisterPlayer(deviceID string, sess *session) error {
	now := h.now()
	if _, err := h.store.UpsertPlayerByDeviceID(deviceID, model.PlayerStatusOnline, now); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to upsert player on registration")
		return err
	}

	h.mu.Lock()
	h.players[deviceID] = sess
	h.mu.Unlock()

	redis.TouchPlayerPresence(context.Background(), deviceID, now, h.heartbeatTimeout)
	h.broadcastToAdmins(model.EventPlayerStatusChange, model.PlayerStatusPayload{
		DeviceID: deviceID,
		Status:   model.PlayerStatusOnline,
	})

	log.Info().Str("device_id", deviceID).Msg("player registered")
	return nil
}

// Heartbeat updates the last-heartbeat timestamp only; it never changes
// status. An offline-marked player comes back via re-registration.
func (h *Hub) Heartbeat(deviceID string) {
	now := h.now()
	if err := h.store.TouchPlayerHeartbeat(deviceID, now); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to record heartbeat")
		return
	}
	redis.TouchPlayerPresence(context.Background(), deviceID, now, h.heartbeatTimeout)
}

// DisconnectPlayer removes the registry entry only if sess is still the
// current handle for the device, so a stale disconnect racing a newer
// registration cannot evict it.
func (h *Hub) DisconnectPlayer(deviceID string, sess *session) {
	h.mu.Lock()
	cur, ok := h.players[deviceID]
	if !ok || cur != sess {
		h.mu.Unlock()
		log.Debug().Str("device_id", deviceID).Msg("ignoring stale disconnect")
		return
	}
	delete(h.players, deviceID)
	h.mu.Unlock()

	if err := h.store.SetPlayerStatus(deviceID, model.PlayerStatusOffline); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to mark player offline")
	}
	h.broadcastToAdmins(model.EventPlayerStatusChange, model.PlayerStatusPayload{
		DeviceID: deviceID,
		Status:   model.PlayerStatusOffline,
	})

	log.Info().Str("device_id", deviceID).Msg("player disconnected")
}

// RegisterUser tracks a dashboard session, with the same supersede-on-
// reregister behavior as players. Unlike players, users are never created
// on the fly: an id with no durable record is rejected.
func (h *Hub) RegisterUser(userID int, sess *session) error {
	if _, err := h.users.GetUserByID(userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Int("user_id", userID).Msg("rejecting connection for unknown user")
		} else {
			log.Error().Err(err).Int("user_id", userID).Msg("failed to load user for registration")
		}
		return err
	}

	now := h.now()
	if err := h.users.SetUserPresence(userID, true, now); err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("failed to mark user online")
		return err
	}

	h.mu.Lock()
	h.admins[userID] = sess
	h.mu.Unlock()

	h.broadcastToAdmins(model.EventUserStatusChange, model.UserStatusPayload{
		UserID:     userID,
		IsOnline:   true,
		LastActive: &now,
	})
	return nil
}

// DisconnectUser removes a dashboard session, guarded against stale handles.
func (h *Hub) DisconnectUser(userID int, sess *session) {
	h.mu.Lock()
	cur, ok := h.admins[userID]
	if !ok || cur != sess {
		h.mu.Unlock()
		return
	}
	delete(h.admins, userID)
	h.mu.Unlock()

	now := h.now()
	if err := h.users.SetUserPresence(userID, false, now); err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("failed to mark user offline")
	}
	h.broadcastToAdmins(model.EventUserStatusChange, model.UserStatusPayload{
		UserID:     userID,
		IsOnline:   false,
		LastActive: &now,
	})
}

// UpdateSettings persists new settings for a device and pushes them to its
// current session, if any.
func (h *Hub) UpdateSettings(deviceID string, settings model.PlayerSettings) error {
	if err := h.store.UpdatePlayerSettings(deviceID, settings); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to update player settings")
		return err
	}
	env, err := model.NewEnvelope(model.EventSettingsUpdate, settings)
	if err != nil {
		return err
	}
	h.SendToDevice(deviceID, env)
	return nil
}

// SendToDevice delivers an envelope to the device's current session.
// Reports false when the device is not connected; that is not an error.
func (h *Hub) SendToDevice(deviceID string, env model.Envelope) bool {
	h.mu.RLock()
	sess, ok := h.players[deviceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	sess.push(env)
	return true
}

// Broadcast delivers an envelope to every connected session, players and
// dashboards alike.
func (h *Hub) Broadcast(env model.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sess := range h.players {
		sess.push(env)
	}
	for _, sess := range h.admins {
		sess.push(env)
	}
}

func (h *Hub) broadcastToAdmins(event string, payload any) {
	env, err := model.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode broadcast")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sess := range h.admins {
		sess.push(env)
	}
}

// ConnectedDevices lists the device ids with a current session.
func (h *Hub) ConnectedDevices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.players))
	for deviceID := range h.players {
		out = append(out, deviceID)
	}
	return out
}

// IsConnected reports whether a device currently holds a session.
func (h *Hub) IsConnected(deviceID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.players[deviceID]
	return ok
}

// SweepStale marks every player whose last heartbeat exceeds the configured
// timeout as offline, drops its session, and broadcasts the change. Players
// that crash or lose network without a clean disconnect are caught here.
func (h *Hub) SweepStale() {
	cutoff := h.now().Add(-h.heartbeatTimeout)
	stale, err := h.store.ListStalePlayers(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("presence sweep failed")
		return
	}

	for _, p := range stale {
		if err := h.store.SetPlayerStatus(p.DeviceID, model.PlayerStatusOffline); err != nil {
			log.Error().Err(err).Str("device_id", p.DeviceID).Msg("failed to expire player")
			continue
		}

		h.mu.Lock()
		if sess, ok := h.players[p.DeviceID]; ok {
			delete(h.players, p.DeviceID)
			sess.close()
		}
		h.mu.Unlock()

		h.broadcastToAdmins(model.EventPlayerStatusChange, model.PlayerStatusPayload{
			DeviceID: p.DeviceID,
			Status:   model.PlayerStatusOffline,
		})
		log.Info().Str("device_id", p.DeviceID).Msg("player heartbeat expired")
	}
}

// Run drives the periodic presence sweep until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepStale()
		}
	}
}
