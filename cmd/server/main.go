package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/db"
	"github.com/lumenworks/signboard/internal/realtime"
	"github.com/lumenworks/signboard/internal/redis"
	"github.com/lumenworks/signboard/internal/scheduler"
)

func main() {
	// load configuration
	env := LoadEnvironment()

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}

	// run pending migrations
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	if env.RedisAddress != "" {
		redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)
	}

	store := db.NewStore()

	// realtime fan-out: connection registry + distributor, with an optional
	// MQTT mirror for broker-attached players
	hub := realtime.NewHub(store, store, env.HeartbeatTimeout)

	var mirror realtime.Publisher
	if env.MQTTBrokerURL != "" {
		m, err := realtime.NewMQTTMirror(env.MQTTBrokerURL, "signboard-server")
		if err != nil {
			log.Error().Err(err).Msg("mqtt mirror unavailable, continuing without it")
		} else {
			mirror = m
			defer m.Close()
		}
	}
	dist := realtime.NewDistributor(hub, store, mirror)

	// plan scheduling: re-arm everything that was pending or active before
	// the process went down
	sched := scheduler.New(store, dist)
	if err := sched.RecoverAll(); err != nil {
		log.Error().Err(err).Msg("schedule recovery incomplete")
	}

	// periodic presence sweep for players that vanished without a clean
	// disconnect
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, env.HeartbeatSweepInterval)

	// set up gin router
	r := gin.Default()
	RegisterRoutes(r, env, store, sched, hub, dist)

	// start
	log.Info().Str("address", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
