package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lumenworks/signboard/internal/db"
	"github.com/lumenworks/signboard/internal/http/api"
	adminapi "github.com/lumenworks/signboard/internal/http/api/admin/endpoints"
	"github.com/lumenworks/signboard/internal/realtime"
	"github.com/lumenworks/signboard/internal/scheduler"
)

var startedAt = time.Now()

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, store db.Store,
	sched *scheduler.Scheduler, hub *realtime.Hub, dist *realtime.Distributor) {

	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
	},
		adminapi.PlanModule(store, sched),
		adminapi.PlayerModule(store, hub, dist),
	)

	// realtime socket for players and dashboards
	r.GET("/ws", realtime.SocketEndpoint(hub, dist))

	r.GET("/health", func(c *gin.Context) {
		if err := db.DB.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"uptime":   time.Since(startedAt).String(),
		})
	})
}
