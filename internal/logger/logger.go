package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the service logger. An empty or unknown level falls back to debug in
// development and info elsewhere.
func New(env, level string) zerolog.Logger {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "trip-integrity").Logger()
	if env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(parseLevel(env, level))
}

func parseLevel(env, level string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return parsed
	}
	if env == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
