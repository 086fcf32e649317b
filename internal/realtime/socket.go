package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketEndpoint upgrades the request and services the connection's event
// loop until the peer goes away. One socket carries either a player (after
// register-player) or a dashboard session (after user-connect).
func SocketEndpoint(hub *Hub, dist *Distributor) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Msg("websocket upgrade failed")
			return
		}
		sess := newSession(conn)
		serveSocket(hub, dist, conn, sess)
	}
}

func serveSocket(hub *Hub, dist *Distributor, conn *websocket.Conn, sess *session) {
	var deviceID string
	var userID int

	for {
		var env model.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			break
		}
		deviceID, userID = dispatchEvent(hub, dist, sess, env, deviceID, userID)
	}

	// transport-level disconnect; the hub's stale-handle guard makes this
	// a no-op if a newer registration already superseded us
	if deviceID != "" {
		hub.DisconnectPlayer(deviceID, sess)
	}
	if userID != 0 {
		hub.DisconnectUser(userID, sess)
	}
	sess.close()
}

// dispatchEvent handles one inbound envelope and returns the identities the
// socket has claimed so far.
func dispatchEvent(hub *Hub, dist *Distributor, sess *session, env model.Envelope, deviceID string, userID int) (string, int) {
	switch env.Event {
	case model.EventRegisterPlayer:
		var p model.RegisterPlayerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.DeviceID == "" {
			log.Warn().Err(err).Msg("malformed register-player payload")
			return deviceID, userID
		}
		if err := hub.RegisterPlayer(p.DeviceID, sess); err != nil {
			return deviceID, userID
		}
		dist.CatchUp(p.DeviceID)
		return p.DeviceID, userID

	case model.EventUserConnect:
		var p model.UserConnectPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UserID == 0 {
			log.Warn().Err(err).Msg("malformed user-connect payload")
			return deviceID, userID
		}
		if err := hub.RegisterUser(p.UserID, sess); err != nil {
			return deviceID, userID
		}
		return deviceID, p.UserID

	case model.EventUpdateContent:
		var p model.UpdateContentPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Warn().Err(err).Msg("malformed update-content payload")
			return deviceID, userID
		}
		dist.PushToDevice(p.DeviceID, p.Content)

	case model.EventUpdateSettings:
		var p model.UpdateSettingsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			log.Warn().Err(err).Msg("malformed update-settings payload")
			return deviceID, userID
		}
		if err := hub.UpdateSettings(p.DeviceID, p.Settings); err != nil {
			log.Error().Err(err).Str("device_id", p.DeviceID).Msg("settings update failed")
		}

	case model.EventHeartbeat:
		if deviceID != "" {
			hub.Heartbeat(deviceID)
		}

	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
	return deviceID, userID
}
