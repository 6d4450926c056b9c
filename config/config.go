/*
config.go - Process configuration

PURPOSE:
  Loads server configuration from the environment, with an optional .env
  file for local development, and builds the process-wide logger.

ENVIRONMENT:
  SKYTRAIL_ADDR   Listen address        (default ":8090")
  SKYTRAIL_DB     SQLite database path  (default "backoffice.db")
  LOG_LEVEL       logrus level          (default "info")
  LOG_FORMAT      "json" or "text"      (default "text")

SEE ALSO:
  - cmd/server/main.go: Startup wiring
*/
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server binary needs to start.
type Config struct {
	Addr      string
	DBPath    string
	LogLevel  string
	LogFormat string
}

// Load reads the environment. A missing .env file is not an error.
func Load() Config {
	godotenv.Load()

	return Config{
		Addr:      envOr("SKYTRAIL_ADDR", ":8090"),
		DBPath:    envOr("SKYTRAIL_DB", "backoffice.db"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}
}

// NewLogger builds the process logger from the config. Unknown levels
// fall back to info rather than failing startup.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.New()

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
