package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenworks/signboard/internal/db"
	"github.com/lumenworks/signboard/internal/http/api"
	"github.com/lumenworks/signboard/internal/http/api/admin/packets"
	"github.com/lumenworks/signboard/internal/realtime"
	"github.com/lumenworks/signboard/internal/redis"
)

type PlayerController struct {
	store db.Store
	hub   *realtime.Hub
	dist  *realtime.Distributor
}

func NewPlayerController(store db.Store, hub *realtime.Hub, dist *realtime.Distributor) *PlayerController {
	return &PlayerController{store: store, hub: hub, dist: dist}
}

func PlayerModule(store db.Store, hub *realtime.Hub, dist *realtime.Distributor) api.Module {
	ctl := NewPlayerController(store, hub, dist)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/players", ctl.listPlayers)
		c.POST("/players/:device_id/content", ctl.pushContent)
		c.POST("/players/content", ctl.pushContentToAll)
	})
}

func (p *PlayerController) listPlayers(ctx *gin.Context) (any, *api.APIError) {
	players, err := p.store.ListPlayers()
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to list players"}
	}

	response := make([]packets.PlayerResponse, 0, len(players))
	for _, player := range players {
		// a device whose socket lands on another replica is still live; its
		// heartbeats keep the shared presence key fresh
		connected := p.hub.IsConnected(player.DeviceID) ||
			redis.PlayerSeen(ctx.Request.Context(), player.DeviceID)
		response = append(response, packets.NewPlayerResponse(player, connected))
	}
	return response, nil
}

// pushContent is the HTTP variant of the dashboard's update-content event.
// Pushing to a disconnected device is accepted; the push is simply dropped
// and the device catches up on its next registration.
func (p *PlayerController) pushContent(ctx *gin.Context) (any, *api.APIError) {
	deviceID := ctx.Param("device_id")
	var request packets.PushContentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	p.dist.PushToDevice(deviceID, request.Content)
	return gin.H{"message": "pushed", "connected": p.hub.IsConnected(deviceID)}, nil
}

func (p *PlayerController) pushContentToAll(ctx *gin.Context) (any, *api.APIError) {
	var request packets.PushContentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	p.dist.PushToAll(request.Content)
	return gin.H{"message": "pushed", "devices": p.hub.ConnectedDevices()}, nil
}
