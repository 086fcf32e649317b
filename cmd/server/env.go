package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Environment struct {
	Environment    string
	ServerAddress  string
	DatabaseURL    string
	MigrationsPath string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL string

	HeartbeatTimeout       time.Duration
	HeartbeatSweepInterval time.Duration
}

// LoadEnvironment reads and validates env vars. A local .env file is loaded
// first when present.
func LoadEnvironment() Environment {
	_ = godotenv.Load()

	env := Environment{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  os.Getenv("SERVER_ADDRESS"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),

		HeartbeatTimeout:       secondsEnv("HEARTBEAT_TIMEOUT", 300),
		HeartbeatSweepInterval: secondsEnv("HEARTBEAT_SWEEP_INTERVAL", 300),
	}

	if env.ServerAddress == "" {
		env.ServerAddress = ":8080"
	}
	if env.MigrationsPath == "" {
		env.MigrationsPath = "./migrations"
	}

	// Basic validation
	if env.DatabaseURL == "" {
		log.Fatal().Msg("Missing required environment variable DATABASE_URL")
	}

	return env
}

func secondsEnv(key string, fallback int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Fatal().Str("key", key).Str("value", raw).Msg("invalid duration environment variable")
	}
	return time.Duration(n) * time.Second
}
