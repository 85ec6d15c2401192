package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// parseEnv loads a .env file from the working directory when present
// (existing variables win) and then overlays:
//
//	PORT          HTTP listen port, becomes ":<PORT>"
//	GRPC_ADDR     gRPC bind address
//	DATABASE_URL  PostgreSQL DSN
//	REDIS_URL     Redis URL for the denylist
//	JWT_SECRET    HMAC signing secret
//	LOG_LEVEL     debug, info, warn or error
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v, ok := lookup("PORT"); ok {
		if strings.Contains(v, ":") {
			config.EndpointAddrHTTP = v
		} else {
			config.EndpointAddrHTTP = ":" + v
		}
	}
	if v, ok := lookup("GRPC_ADDR"); ok {
		config.EndpointAddrGRPC = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		config.RedisURL = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		config.LogLevel = v
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
