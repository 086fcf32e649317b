package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

func InitRedis(redisAddress string, redisUsername string, redisPassword string) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// TouchPlayerPresence refreshes the best-effort presence key for a device.
// The key expires on its own after the heartbeat timeout, so dashboards can
// read liveness from redis without touching Postgres. A missing or failing
// redis is never fatal to the caller.
func TouchPlayerPresence(ctx context.Context, deviceID string, at time.Time, ttl time.Duration) {
	if Rdb == nil {
		return
	}
	key := fmt.Sprintf("player:%s:last_seen", deviceID)
	if err := Rdb.Set(ctx, key, at.UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to refresh presence key")
	}
}

// PlayerSeen reports whether the presence key for a device still exists.
func PlayerSeen(ctx context.Context, deviceID string) bool {
	if Rdb == nil {
		return false
	}
	key := fmt.Sprintf("player:%s:last_seen", deviceID)
	n, err := Rdb.Exists(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to check presence key")
		return false
	}
	return n > 0
}
