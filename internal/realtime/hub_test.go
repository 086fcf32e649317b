package realtime

import (
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/signboard/internal/model"
)

// fakeConn captures everything written through a session's write pump.
type fakeConn struct {
	mu     sync.Mutex
	writes []model.Envelope
	ch     chan model.Envelope
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{ch: make(chan model.Envelope, 32)}
}

func (c *fakeConn) WriteJSON(v any) error {
	env := v.(model.Envelope)
	c.mu.Lock()
	c.writes = append(c.writes, env)
	c.mu.Unlock()
	c.ch <- env
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) waitEvent(t *testing.T, event string) model.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-c.ch:
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %q", event)
		}
	}
}

// fakePlayerStore is an in-memory PlayerStore.
type fakePlayerStore struct {
	mu       sync.Mutex
	statuses map[string]string
	beats    map[string]time.Time
	settings map[string]model.PlayerSettings
	stale    []model.Player
}

func newFakePlayerStore() *fakePlayerStore {
	return &fakePlayerStore{
		statuses: make(map[string]string),
		beats:    make(map[string]time.Time),
		settings: make(map[string]model.PlayerSettings),
	}
}

func (s *fakePlayerStore) UpsertPlayerByDeviceID(deviceID, status string, heartbeat time.Time) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[deviceID] = status
	s.beats[deviceID] = heartbeat
	return &model.Player{DeviceID: deviceID, Status: status, LastHeartbeat: &heartbeat}, nil
}

func (s *fakePlayerStore) SetPlayerStatus(deviceID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[deviceID] = status
	return nil
}

func (s *fakePlayerStore) TouchPlayerHeartbeat(deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beats[deviceID] = at
	return nil
}

func (s *fakePlayerStore) UpdatePlayerSettings(deviceID string, settings model.PlayerSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[deviceID] = settings
	return nil
}

func (s *fakePlayerStore) ListStalePlayers(olderThan time.Time) ([]model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale, nil
}

func (s *fakePlayerStore) status(deviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[deviceID]
}

func (s *fakePlayerStore) beat(deviceID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beats[deviceID]
}

type fakeUserStore struct {
	mu      sync.Mutex
	online  map[int]bool
	missing map[int]bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		online:  make(map[int]bool),
		missing: make(map[int]bool),
	}
}

func (s *fakeUserStore) GetUserByID(id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[id] {
		return nil, sql.ErrNoRows
	}
	return &model.User{ID: id}, nil
}

func (s *fakeUserStore) SetUserPresence(id int, online bool, lastActive time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[id] = online
	return nil
}

func (s *fakeUserStore) isOnline(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[id]
}

func newTestHub() (*Hub, *fakePlayerStore, *fakeUserStore) {
	store := newFakePlayerStore()
	users := newFakeUserStore()
	return NewHub(store, users, 5*time.Minute), store, users
}

func TestRegisterPlayerMarksOnline(t *testing.T) {
	hub, store, _ := newTestHub()
	sess := newSession(newFakeConn())

	require.NoError(t, hub.RegisterPlayer("dev-1", sess))

	assert.True(t, hub.IsConnected("dev-1"))
	assert.Equal(t, model.PlayerStatusOnline, store.status("dev-1"))
	assert.Contains(t, hub.ConnectedDevices(), "dev-1")
}

func TestStaleDisconnectDoesNotEvictNewerRegistration(t *testing.T) {
	hub, store, _ := newTestHub()
	old := newSession(newFakeConn())
	fresh := newSession(newFakeConn())

	require.NoError(t, hub.RegisterPlayer("dev-1", old))
	require.NoError(t, hub.RegisterPlayer("dev-1", fresh))

	// the orphaned handle's disconnect arrives late; it must be a no-op
	hub.DisconnectPlayer("dev-1", old)
	assert.True(t, hub.IsConnected("dev-1"))
	assert.Equal(t, model.PlayerStatusOnline, store.status("dev-1"))

	hub.DisconnectPlayer("dev-1", fresh)
	assert.False(t, hub.IsConnected("dev-1"))
	assert.Equal(t, model.PlayerStatusOffline, store.status("dev-1"))
}

func TestHeartbeatUpdatesTimestampOnly(t *testing.T) {
	hub, store, _ := newTestHub()
	sess := newSession(newFakeConn())
	require.NoError(t, hub.RegisterPlayer("dev-1", sess))

	before := store.beat("dev-1")
	time.Sleep(5 * time.Millisecond)
	hub.Heartbeat("dev-1")

	assert.True(t, store.beat("dev-1").After(before))
	assert.Equal(t, model.PlayerStatusOnline, store.status("dev-1"))
}

func TestPresenceBroadcastReachesAdmins(t *testing.T) {
	hub, _, users := newTestHub()
	adminConn := newFakeConn()
	require.NoError(t, hub.RegisterUser(7, newSession(adminConn)))
	assert.True(t, users.isOnline(7))

	sess := newSession(newFakeConn())
	require.NoError(t, hub.RegisterPlayer("dev-1", sess))

	env := adminConn.waitEvent(t, model.EventPlayerStatusChange)
	var payload model.PlayerStatusPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "dev-1", payload.DeviceID)
	assert.Equal(t, model.PlayerStatusOnline, payload.Status)

	hub.DisconnectPlayer("dev-1", sess)
	env = adminConn.waitEvent(t, model.EventPlayerStatusChange)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, model.PlayerStatusOffline, payload.Status)
}

func TestUnknownUserCannotRegister(t *testing.T) {
	hub, _, users := newTestHub()
	users.mu.Lock()
	users.missing[42] = true
	users.mu.Unlock()

	err := hub.RegisterUser(42, newSession(newFakeConn()))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, users.isOnline(42))
}

func TestUserPresenceLifecycle(t *testing.T) {
	hub, _, users := newTestHub()
	sess := newSession(newFakeConn())

	require.NoError(t, hub.RegisterUser(3, sess))
	assert.True(t, users.isOnline(3))

	// stale handle cannot take a newer session offline
	fresh := newSession(newFakeConn())
	require.NoError(t, hub.RegisterUser(3, fresh))
	hub.DisconnectUser(3, sess)
	assert.True(t, users.isOnline(3))

	hub.DisconnectUser(3, fresh)
	assert.False(t, users.isOnline(3))
}

func TestSweepStaleExpiresSilentPlayers(t *testing.T) {
	hub, store, _ := newTestHub()
	adminConn := newFakeConn()
	require.NoError(t, hub.RegisterUser(1, newSession(adminConn)))
	adminConn.waitEvent(t, model.EventUserStatusChange)

	sess := newSession(newFakeConn())
	require.NoError(t, hub.RegisterPlayer("dev-1", sess))
	adminConn.waitEvent(t, model.EventPlayerStatusChange)

	// the device stopped heartbeating without a disconnect event
	store.mu.Lock()
	store.stale = []model.Player{{DeviceID: "dev-1", Status: model.PlayerStatusOnline}}
	store.mu.Unlock()

	hub.SweepStale()

	assert.False(t, hub.IsConnected("dev-1"))
	assert.Equal(t, model.PlayerStatusOffline, store.status("dev-1"))

	env := adminConn.waitEvent(t, model.EventPlayerStatusChange)
	var payload model.PlayerStatusPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, model.PlayerStatusOffline, payload.Status)
}

func TestUpdateSettingsPersistsAndPushes(t *testing.T) {
	hub, store, _ := newTestHub()
	conn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(conn)))

	settings := model.PlayerSettings{LogLevel: "debug", HeartbeatInterval: 10}
	require.NoError(t, hub.UpdateSettings("dev-1", settings))

	env := conn.waitEvent(t, model.EventSettingsUpdate)
	var got model.PlayerSettings
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, settings, got)

	store.mu.Lock()
	assert.Equal(t, settings, store.settings["dev-1"])
	store.mu.Unlock()
}
