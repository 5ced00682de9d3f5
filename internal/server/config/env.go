package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// .env file first when one is present in the working directory.
//
// Recognized variables:
//
//	ADDRESS            HTTP bind address (e.g. ":8080")
//	DATABASE_DSN       PostgreSQL DSN
//	APP_ENV            "development" or "production"
//	ACCESS_TOKEN_TTL   access token lifetime, Go duration string (e.g. "15m")
//	REFRESH_TOKEN_TTL  refresh token lifetime, Go duration string (e.g. "720h")
func parseEnv(config *Config) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	if v := os.Getenv("ADDRESS"); v != "" {
		config.EndpointAddr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.RefreshTokenValidityDuration = d
		}
	}
}
